package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/middleware"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type fakeModerationSrv struct {
	edit     *models.Edit
	err      error
	lastID   string
	lastReq  dto.ReviewEditRequest
	reviewed int
}

func (f *fakeModerationSrv) Review(_ context.Context, id string, req dto.ReviewEditRequest, _ *models.JWTClaims) (*models.Edit, error) {
	f.lastID = id
	f.lastReq = req
	f.reviewed++
	return f.edit, f.err
}

func TestModerationHandlerQueueDefaultsToPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &fakeHistorySrv{views: []dto.EditView{}}
	handler := NewModerationHandler(&fakeModerationSrv{}, history, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/moderation/edits", nil)

	handler.Queue(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.EditStatus{models.EditStatusPending}, history.lastQuery.Status)
}

func TestModerationHandlerQueueHonoursExplicitStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &fakeHistorySrv{views: []dto.EditView{}}
	handler := NewModerationHandler(&fakeModerationSrv{}, history, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/moderation/edits?status=REJECTED", nil)

	handler.Queue(c)

	assert.Equal(t, []models.EditStatus{models.EditStatusRejected}, history.lastQuery.Status)
}

func TestModerationHandlerReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeModerationSrv{edit: &models.Edit{ID: "edit-1", Status: models.EditStatusApplied}}
	handler := NewModerationHandler(srv, &fakeHistorySrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/moderation/edits/edit-1", strings.NewReader(`{"decision":"APPROVED","note":"ok"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "edit-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator})

	handler.Review(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edit-1", srv.lastID)
	assert.Equal(t, models.EditStatus("APPROVED"), srv.lastReq.Decision)
	assert.Equal(t, "ok", srv.lastReq.Note)
}

func TestModerationHandlerReviewConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeModerationSrv{err: appErrors.Clone(appErrors.ErrNotFound, "edit not found or already reviewed")}
	handler := NewModerationHandler(srv, &fakeHistorySrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/moderation/edits/edit-1", strings.NewReader(`{"decision":"REJECTED"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "edit-1"}}

	handler.Review(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModerationHandlerReviewInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeModerationSrv{}
	handler := NewModerationHandler(srv, &fakeHistorySrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/moderation/edits/edit-1", strings.NewReader("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Review(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.reviewed)
}
