package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type historyStore interface {
	GetWithSubmitter(ctx context.Context, id string) (*models.EditWithSubmitter, error)
	List(ctx context.Context, filter models.EditFilter) ([]models.EditWithSubmitter, int, error)
	StatusCountsForUser(ctx context.Context, userID string) ([]models.EditStatusCount, error)
}

type historyUserStore interface {
	FindByPublicID(ctx context.Context, publicID string) (*models.User, error)
	SetPendingCount(ctx context.Context, id string, count int) error
}

// HistoryService is the read side of the edit workflow: filtered listings,
// per-user history, and the pending-counter repair. It never mutates edits.
type HistoryService struct {
	edits  historyStore
	users  historyUserStore
	logger *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(edits historyStore, users historyUserStore, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{edits: edits, users: users, logger: logger}
}

// List returns edits matching the query, newest first. Submitter emails are
// included only for moderator viewers.
func (s *HistoryService) List(ctx context.Context, query dto.EditQuery, actor *models.JWTClaims) ([]dto.EditView, *models.Pagination, error) {
	filter := models.EditFilter{
		Status:     query.Status,
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
	}
	if query.User != "" {
		user, err := s.users.FindByPublicID(ctx, query.User)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []dto.EditView{}, &models.Pagination{Page: 1, PageSize: pageSize(query.PageSize)}, nil
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user filter")
		}
		filter.UserID = user.ID
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	filter.Limit = pageSize(query.PageSize)
	filter.Offset = (page - 1) * filter.Limit

	edits, total, err := s.edits.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list edits")
	}

	moderator := actor != nil && actor.Role.IsModerator()
	views := make([]dto.EditView, 0, len(edits))
	for _, edit := range edits {
		views = append(views, toEditView(edit, moderator))
	}
	return views, &models.Pagination{Page: page, PageSize: filter.Limit, TotalCount: total}, nil
}

// Get returns a single edit with its submitter identity.
func (s *HistoryService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.EditView, error) {
	edit, err := s.edits.GetWithSubmitter(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "edit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit")
	}
	moderator := actor != nil && actor.Role.IsModerator()
	view := toEditView(*edit, moderator)
	return &view, nil
}

// UserHistory returns a user's public edit history with status counts. When
// the cached pending counter disagrees with the live count it is repaired
// as a best-effort side effect; repair failures are logged, never surfaced.
func (s *HistoryService) UserHistory(ctx context.Context, publicID string, page, size int, actor *models.JWTClaims) (*dto.UserEditHistory, *models.Pagination, error) {
	user, err := s.users.FindByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "unknown user")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	statusCounts, err := s.edits.StatusCountsForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count edits")
	}
	counts := dto.StatusCounts{}
	for _, c := range statusCounts {
		switch c.Status {
		case models.EditStatusPending:
			counts.Pending = c.Count
		case models.EditStatusApplied:
			counts.Applied = c.Count
		case models.EditStatusRejected:
			counts.Rejected = c.Count
		case models.EditStatusSuperseded:
			counts.Superseded = c.Count
		}
	}

	if counts.Pending != user.EditsPending {
		if err := s.users.SetPendingCount(ctx, user.ID, counts.Pending); err != nil {
			s.logger.Warn("failed to repair pending counter",
				zap.String("user_id", user.ID),
				zap.Int("cached", user.EditsPending),
				zap.Int("live", counts.Pending),
				zap.Error(err))
		}
	}

	if page < 1 {
		page = 1
	}
	limit := pageSize(size)
	edits, total, err := s.edits.List(ctx, models.EditFilter{
		UserID: user.ID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list edits")
	}

	self := actor != nil && actor.UserID == user.ID
	moderator := actor != nil && actor.Role.IsModerator()
	views := make([]dto.EditView, 0, len(edits))
	for _, edit := range edits {
		views = append(views, toEditView(edit, moderator))
	}

	history := &dto.UserEditHistory{
		User:   dto.Submitter{PublicID: user.PublicID, DisplayName: user.DisplayName},
		Counts: counts,
		Edits:  views,
	}
	if moderator || self {
		history.User.Email = user.Email
	}
	return history, &models.Pagination{Page: page, PageSize: limit, TotalCount: total}, nil
}

func toEditView(edit models.EditWithSubmitter, includeEmail bool) dto.EditView {
	view := dto.EditView{
		ID:            edit.ID,
		EntityType:    edit.EntityType,
		EntityID:      edit.EntityID,
		Field:         edit.Field,
		OldValue:      edit.OldValue,
		NewValue:      edit.NewValue,
		Rationale:     edit.Rationale,
		Status:        edit.Status,
		Submitter:     dto.Submitter{PublicID: edit.SubmitterPublicID, DisplayName: edit.SubmitterName},
		ModeratorNote: edit.ModeratorNote,
		CreatedAt:     edit.CreatedAt,
		ReviewedAt:    edit.ReviewedAt,
	}
	if includeEmail {
		view.Submitter.Email = edit.SubmitterEmail
	}
	return view
}

func pageSize(size int) int {
	if size <= 0 || size > 50 {
		return 50
	}
	return size
}
