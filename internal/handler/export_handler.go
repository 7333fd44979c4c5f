package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/internal/service"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

type auditExporter interface {
	Generate(ctx context.Context, query dto.EditQuery, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error)
}

// ExportHandler serves audit-trail downloads.
type ExportHandler struct {
	exports auditExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports auditExporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Export the edit audit trail
// @Tags Moderation
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Comma separated statuses"
// @Param entity_type query string false "Entity type"
// @Success 200 {file} file
// @Router /moderation/edits/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))))
	result, err := h.exports.Generate(c.Request.Context(), parseEditQuery(c), format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
