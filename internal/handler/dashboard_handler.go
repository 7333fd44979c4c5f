package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/dto"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

type dashboardProvider interface {
	Moderation(ctx context.Context) (*dto.ModerationDashboardResponse, bool, error)
}

// DashboardHandler serves aggregated moderation statistics.
type DashboardHandler struct {
	dashboard dashboardProvider
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboard dashboardProvider) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Moderation godoc
// @Summary Moderation workload dashboard
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderation/dashboard [get]
func (h *DashboardHandler) Moderation(c *gin.Context) {
	if h.dashboard == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "dashboard service not configured"))
		return
	}
	payload, cached, err := h.dashboard.Moderation(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cache": cached})
}
