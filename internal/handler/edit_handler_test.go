package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/middleware"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type fakeEditSrv struct {
	edit      *models.Edit
	err       error
	lastReq   dto.CreateEditRequest
	lastActor *models.JWTClaims
}

func (f *fakeEditSrv) Submit(_ context.Context, req dto.CreateEditRequest, actor *models.JWTClaims) (*models.Edit, error) {
	f.lastReq = req
	f.lastActor = actor
	return f.edit, f.err
}

type fakeHistorySrv struct {
	views     []dto.EditView
	view      *dto.EditView
	err       error
	lastQuery dto.EditQuery
}

func (f *fakeHistorySrv) List(_ context.Context, query dto.EditQuery, _ *models.JWTClaims) ([]dto.EditView, *models.Pagination, error) {
	f.lastQuery = query
	return f.views, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(f.views)}, f.err
}

func (f *fakeHistorySrv) Get(_ context.Context, id string, _ *models.JWTClaims) (*dto.EditView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func TestEditHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEditSrv{edit: &models.Edit{ID: "edit-1", Status: models.EditStatusPending}}
	handler := NewEditHandler(srv, &fakeHistorySrv{}, nil)

	body := `{"entity_type":"CANDIDATE","entity_id":"cand-1","field":"bio","new_value":"New bio","rationale":"typo"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/edits", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Create(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANDIDATE", srv.lastReq.EntityType)
	assert.Equal(t, "user-1", srv.lastActor.UserID)
}

func TestEditHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEditHandler(&fakeEditSrv{}, &fakeHistorySrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/edits", strings.NewReader("{broken"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditHandlerCreateRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEditSrv{err: appErrors.ErrRateLimited}
	handler := NewEditHandler(srv, &fakeHistorySrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/edits", strings.NewReader(`{"entity_type":"CANDIDATE"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "RATE_LIMITED", envelope.Error["code"])
}

func TestEditHandlerListParsesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &fakeHistorySrv{views: []dto.EditView{}}
	handler := NewEditHandler(&fakeEditSrv{}, history, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/edits?status=pending,applied&entity_type=race&entity_id=race-1&user=pub-1&page=2&page_size=10", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.EditStatus{models.EditStatusPending, models.EditStatusApplied}, history.lastQuery.Status)
	assert.Equal(t, models.EntityRace, history.lastQuery.EntityType)
	assert.Equal(t, "race-1", history.lastQuery.EntityID)
	assert.Equal(t, "pub-1", history.lastQuery.User)
	assert.Equal(t, 2, history.lastQuery.Page)
	assert.Equal(t, 10, history.lastQuery.PageSize)
}

func TestEditHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &fakeHistorySrv{view: &dto.EditView{ID: "edit-1"}}
	handler := NewEditHandler(&fakeEditSrv{}, history, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/edits/edit-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "edit-1"}}

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "edit-1", envelope.Data["id"])
}

func TestEditHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &fakeHistorySrv{err: appErrors.ErrNotFound}
	handler := NewEditHandler(&fakeEditSrv{}, history, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/edits/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
