package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/pkg/config"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type exportStoreStub struct {
	rows   []models.EditWithSubmitter
	filter models.EditFilter
}

func (s *exportStoreStub) List(ctx context.Context, filter models.EditFilter) ([]models.EditWithSubmitter, int, error) {
	s.filter = filter
	return s.rows, len(s.rows), nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestExportServiceCSV(t *testing.T) {
	store := &exportStoreStub{rows: []models.EditWithSubmitter{submittedRow("edit-1")}}
	audit := &auditStub{}
	svc := NewExportService(store, audit, config.ExportConfig{MaxRows: 100}, nil)

	result, err := svc.Generate(context.Background(), dto.EditQuery{}, ExportFormatCSV, adminClaims())
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.True(t, strings.HasSuffix(result.Filename, ".csv"))
	require.Contains(t, string(result.Payload), "edit-1")
	require.Contains(t, string(result.Payload), "pub-1")
	require.Equal(t, 100, store.filter.Limit)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionEditExport, audit.logs[0].Action)
}

func TestExportServicePDF(t *testing.T) {
	store := &exportStoreStub{rows: []models.EditWithSubmitter{submittedRow("edit-1")}}
	svc := NewExportService(store, nil, config.ExportConfig{}, nil)

	result, err := svc.Generate(context.Background(), dto.EditQuery{}, ExportFormatPDF, adminClaims())
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.NotEmpty(t, result.Payload)
}

func TestExportServiceRequiresAdmin(t *testing.T) {
	svc := NewExportService(&exportStoreStub{}, nil, config.ExportConfig{}, nil)

	_, err := svc.Generate(context.Background(), dto.EditQuery{}, ExportFormatCSV, moderatorClaims())
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Generate(context.Background(), dto.EditQuery{}, ExportFormatCSV, nil)
	require.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(&exportStoreStub{}, nil, config.ExportConfig{}, nil)

	_, err := svc.Generate(context.Background(), dto.EditQuery{}, ExportFormat("xlsx"), adminClaims())
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
