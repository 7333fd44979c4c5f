package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

type editSubmitter interface {
	Submit(ctx context.Context, req dto.CreateEditRequest, actor *models.JWTClaims) (*models.Edit, error)
}

type editReader interface {
	List(ctx context.Context, query dto.EditQuery, actor *models.JWTClaims) ([]dto.EditView, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.EditView, error)
}

type submissionRecorder interface {
	RecordEditSubmission(outcome string)
}

// EditHandler exposes REST endpoints for the community edit workflow.
type EditHandler struct {
	edits   editSubmitter
	history editReader
	metrics submissionRecorder
}

// NewEditHandler constructs the handler.
func NewEditHandler(edits editSubmitter, history editReader, metrics submissionRecorder) *EditHandler {
	return &EditHandler{edits: edits, history: history, metrics: metrics}
}

// Create godoc
// @Summary Propose an edit to a published record
// @Tags Edits
// @Accept json
// @Produce json
// @Param payload body dto.CreateEditRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Router /edits [post]
func (h *EditHandler) Create(c *gin.Context) {
	if h.edits == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "edit service not configured"))
		return
	}
	var req dto.CreateEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	claims := claimsFromContext(c)
	edit, err := h.edits.Submit(c.Request.Context(), req, claims)
	if err != nil {
		h.recordSubmission(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.recordSubmission("accepted")
	response.JSON(c, http.StatusOK, edit, nil)
}

// List godoc
// @Summary List edits
// @Tags Edits
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param entity_type query string false "Entity type"
// @Param entity_id query string false "Entity identifier"
// @Param user query string false "Submitter public id"
// @Success 200 {object} response.Envelope
// @Router /edits [get]
func (h *EditHandler) List(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "history service not configured"))
		return
	}
	views, pagination, err := h.history.List(c.Request.Context(), parseEditQuery(c), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// Get godoc
// @Summary Get edit detail
// @Tags Edits
// @Produce json
// @Param id path string true "Edit ID"
// @Success 200 {object} response.Envelope
// @Router /edits/{id} [get]
func (h *EditHandler) Get(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "history service not configured"))
		return
	}
	view, err := h.history.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func (h *EditHandler) recordSubmission(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordEditSubmission(outcome)
	}
}

// parseEditQuery reads the shared listing filters from the request.
func parseEditQuery(c *gin.Context) dto.EditQuery {
	query := dto.EditQuery{
		EntityID: strings.TrimSpace(c.Query("entity_id")),
		User:     strings.TrimSpace(c.Query("user")),
	}
	if rawEntity := c.Query("entity_type"); rawEntity != "" {
		query.EntityType = models.EntityType(strings.ToUpper(strings.TrimSpace(rawEntity)))
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.EditStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.EditStatus(part))
		}
		query.Status = statuses
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		query.PageSize = size
	}
	return query
}
