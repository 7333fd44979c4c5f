package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

type editReviewer interface {
	Review(ctx context.Context, id string, req dto.ReviewEditRequest, actor *models.JWTClaims) (*models.Edit, error)
}

type reviewRecorder interface {
	RecordEditReview(decision string)
}

// ModerationHandler exposes the moderator review queue.
type ModerationHandler struct {
	moderation editReviewer
	history    editReader
	metrics    reviewRecorder
}

// NewModerationHandler constructs the handler.
func NewModerationHandler(moderation editReviewer, history editReader, metrics reviewRecorder) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, history: history, metrics: metrics}
}

// Queue godoc
// @Summary List edits awaiting review
// @Tags Moderation
// @Produce json
// @Param entity_type query string false "Entity type"
// @Param entity_id query string false "Entity identifier"
// @Success 200 {object} response.Envelope
// @Router /moderation/edits [get]
func (h *ModerationHandler) Queue(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "history service not configured"))
		return
	}
	query := parseEditQuery(c)
	if len(query.Status) == 0 {
		query.Status = []models.EditStatus{models.EditStatusPending}
	}
	views, pagination, err := h.history.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// Review godoc
// @Summary Approve or reject a pending edit
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Edit ID"
// @Param payload body dto.ReviewEditRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /moderation/edits/{id} [patch]
func (h *ModerationHandler) Review(c *gin.Context) {
	if h.moderation == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "moderation service not configured"))
		return
	}
	var req dto.ReviewEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	edit, err := h.moderation.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordEditReview(string(edit.Status))
	}
	response.JSON(c, http.StatusOK, edit, nil)
}
