package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/internal/repository"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type moderationStoreStub struct {
	edits    map[string]*models.Edit
	approved []repository.ReviewParams
	rejected []repository.ReviewParams
	conflict bool
}

func newModerationStoreStub(edits ...*models.Edit) *moderationStoreStub {
	stub := &moderationStoreStub{edits: make(map[string]*models.Edit)}
	for _, e := range edits {
		stub.edits[e.ID] = e
	}
	return stub
}

func (s *moderationStoreStub) GetByID(ctx context.Context, id string) (*models.Edit, error) {
	if edit, ok := s.edits[id]; ok {
		copy := *edit
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *moderationStoreStub) Approve(ctx context.Context, params repository.ReviewParams) error {
	if s.conflict {
		return sql.ErrNoRows
	}
	s.approved = append(s.approved, params)
	return nil
}

func (s *moderationStoreStub) Reject(ctx context.Context, params repository.ReviewParams) error {
	if s.conflict {
		return sql.ErrNoRows
	}
	s.rejected = append(s.rejected, params)
	return nil
}

func pendingEdit() *models.Edit {
	return &models.Edit{
		ID:         "edit-1",
		EntityType: models.EntityCandidate,
		EntityID:   "cand-1",
		Field:      "bio",
		OldValue:   "Old bio",
		NewValue:   "New bio",
		Status:     models.EditStatusPending,
		UserID:     "user-1",
	}
}

func moderatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator}
}

func TestModerationServiceApprove(t *testing.T) {
	store := newModerationStoreStub(pendingEdit())
	audit := &auditStub{}
	svc := NewModerationService(store, audit, nil, nil)

	edit, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "APPROVED", Note: "checks out"}, moderatorClaims())
	require.NoError(t, err)
	require.Equal(t, models.EditStatusApplied, edit.Status)
	require.Len(t, store.approved, 1)
	require.Equal(t, "mod-1", store.approved[0].ModeratorID)
	require.NotNil(t, edit.ReviewedAt)
	require.NotNil(t, edit.ModeratorNote)
	require.Equal(t, "checks out", *edit.ModeratorNote)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionEditReview, audit.logs[0].Action)
}

func TestModerationServiceReject(t *testing.T) {
	store := newModerationStoreStub(pendingEdit())
	svc := NewModerationService(store, nil, nil, nil)

	edit, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "rejected"}, moderatorClaims())
	require.NoError(t, err)
	require.Equal(t, models.EditStatusRejected, edit.Status)
	require.Len(t, store.rejected, 1)
	require.Nil(t, edit.ModeratorNote)
}

func TestModerationServiceAppliedAlias(t *testing.T) {
	store := newModerationStoreStub(pendingEdit())
	svc := NewModerationService(store, nil, nil, nil)

	edit, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "APPLIED"}, moderatorClaims())
	require.NoError(t, err)
	require.Equal(t, models.EditStatusApplied, edit.Status)
}

func TestModerationServiceInvalidDecision(t *testing.T) {
	svc := NewModerationService(newModerationStoreStub(pendingEdit()), nil, nil, nil)

	_, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "MAYBE"}, moderatorClaims())
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestModerationServiceForbidden(t *testing.T) {
	svc := NewModerationService(newModerationStoreStub(pendingEdit()), nil, nil, nil)

	_, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "APPROVED"}, &models.JWTClaims{UserID: "user-1", Role: models.RoleCommunity})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "APPROVED"}, nil)
	require.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestModerationServiceUnknownEdit(t *testing.T) {
	svc := NewModerationService(newModerationStoreStub(), nil, nil, nil)

	_, err := svc.Review(context.Background(), "missing", dto.ReviewEditRequest{Decision: "APPROVED"}, moderatorClaims())
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestModerationServiceAlreadyReviewed(t *testing.T) {
	edit := pendingEdit()
	edit.Status = models.EditStatusApplied
	svc := NewModerationService(newModerationStoreStub(edit), nil, nil, nil)

	_, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "REJECTED"}, moderatorClaims())
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestModerationServiceReviewRace(t *testing.T) {
	store := newModerationStoreStub(pendingEdit())
	store.conflict = true
	svc := NewModerationService(store, nil, nil, nil)

	_, err := svc.Review(context.Background(), "edit-1", dto.ReviewEditRequest{Decision: "APPROVED"}, moderatorClaims())
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
