package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/pkg/config"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/export"
)

// ExportFormat enumerates supported download formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportStore interface {
	List(ctx context.Context, filter models.EditFilter) ([]models.EditWithSubmitter, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered audit-trail download.
type ExportResult struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// ExportService renders the edit audit trail for offline review.
type ExportService struct {
	edits   exportStore
	audit   auditLogger
	csv     csvRenderer
	pdf     pdfRenderer
	maxRows int
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(edits exportStore, audit auditLogger, cfg config.ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ExportService{
		edits:   edits,
		audit:   audit,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		maxRows: maxRows,
		logger:  logger,
	}
}

var exportHeaders = []string{"ID", "Entity Type", "Entity ID", "Field", "Old Value", "New Value", "Status", "Submitter", "Rationale", "Moderator Note", "Created At", "Reviewed At"}

// Generate builds the audit-trail dataset for the query and renders it in
// the requested format. Admin access is enforced here, not in routing,
// so every caller path gets the same check.
func (s *ExportService) Generate(ctx context.Context, query dto.EditQuery, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin access required")
	}

	filter := models.EditFilter{
		Status:     query.Status,
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		Limit:      s.maxRows,
	}
	edits, total, err := s.edits.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list edits for export")
	}
	if total > s.maxRows {
		s.logger.Warn("export truncated",
			zap.Int("total", total),
			zap.Int("max_rows", s.maxRows))
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(edits))}
	for _, edit := range edits {
		row := map[string]string{
			"ID":          edit.ID,
			"Entity Type": string(edit.EntityType),
			"Entity ID":   edit.EntityID,
			"Field":       edit.Field,
			"Old Value":   edit.OldValue,
			"New Value":   edit.NewValue,
			"Status":      string(edit.Status),
			"Submitter":   edit.SubmitterPublicID,
			"Rationale":   edit.Rationale,
			"Created At":  edit.CreatedAt.UTC().Format(time.RFC3339),
		}
		if edit.ModeratorNote != nil {
			row["Moderator Note"] = *edit.ModeratorNote
		}
		if edit.ReviewedAt != nil {
			row["Reviewed At"] = edit.ReviewedAt.UTC().Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	result := &ExportResult{}
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		result.Payload = payload
		result.ContentType = "text/csv"
		result.Filename = fmt.Sprintf("edit-audit-%s.csv", stamp)
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, "Edit Audit Trail")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		result.Payload = payload
		result.ContentType = "application/pdf"
		result.Filename = fmt.Sprintf("edit-audit-%s.pdf", stamp)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}

	s.emitExportAudit(ctx, actor, query, format, len(edits))
	return result, nil
}

func (s *ExportService) emitExportAudit(ctx context.Context, actor *models.JWTClaims, query dto.EditQuery, format ExportFormat, rows int) {
	if s.audit == nil {
		return
	}
	scope := "all"
	if query.EntityType != "" {
		scope = strings.ToLower(string(query.EntityType))
	}
	log := &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionEditExport,
		Resource:  scope,
		NewValues: mustJSON(map[string]interface{}{"format": string(format), "rows": rows}),
		IPAddress: "system",
		UserAgent: "export-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist export audit log", zap.Error(err))
	}
}
