package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

type userHistoryProvider interface {
	UserHistory(ctx context.Context, publicID string, page, size int, actor *models.JWTClaims) (*dto.UserEditHistory, *models.Pagination, error)
}

// UserHandler serves public contributor profiles.
type UserHandler struct {
	history userHistoryProvider
}

// NewUserHandler constructs the handler.
func NewUserHandler(history userHistoryProvider) *UserHandler {
	return &UserHandler{history: history}
}

// Edits godoc
// @Summary A contributor's edit history
// @Tags Users
// @Produce json
// @Param publicId path string true "User public ID"
// @Success 200 {object} response.Envelope
// @Router /users/{publicId}/edits [get]
func (h *UserHandler) Edits(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "history service not configured"))
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	history, pagination, err := h.history.UserHistory(c.Request.Context(), c.Param("publicId"), page, size, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, pagination)
}
