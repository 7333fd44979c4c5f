package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

const dashboardCacheKey = "dash:moderation"

type dashboardStore interface {
	PendingByEntity(ctx context.Context) ([]models.EntityPendingCount, error)
	OldestPending(ctx context.Context) (*models.EditWithSubmitter, error)
	ReviewCountsSince(ctx context.Context, since time.Time) ([]models.EditStatusCount, error)
	TopModerators(ctx context.Context, since time.Time, limit int) ([]models.UserVolume, error)
	TopContributors(ctx context.Context, since time.Time, limit int) ([]models.UserVolume, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	ReviewWindow     time.Duration
	LeaderboardLimit int
}

// DashboardService composes the moderation queue overview.
type DashboardService struct {
	edits  dashboardStore
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(edits dashboardStore, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ReviewWindow <= 0 {
		cfg.ReviewWindow = 7 * 24 * time.Hour
	}
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{edits: edits, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Moderation returns the dashboard aggregation and indicates cache
// utilisation. The payload is moderator-facing, so submitter emails stay
// visible.
func (s *DashboardService) Moderation(ctx context.Context) (*dto.ModerationDashboardResponse, bool, error) {
	if s.cache.Enabled() {
		var cached dto.ModerationDashboardResponse
		hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context) (*dto.ModerationDashboardResponse, error) {
	now := s.now().UTC()
	since := now.Add(-s.cfg.ReviewWindow)

	pending, err := s.edits.PendingByEntity(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending edits")
	}
	oldest, err := s.edits.OldestPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load oldest pending edit")
	}
	reviews, err := s.edits.ReviewCountsSince(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reviews")
	}
	moderators, err := s.edits.TopModerators(ctx, since, s.cfg.LeaderboardLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank moderators")
	}
	contributors, err := s.edits.TopContributors(ctx, since, s.cfg.LeaderboardLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank contributors")
	}

	summary := &dto.ModerationDashboardResponse{
		PendingByEntity: make([]dto.PendingByEntity, 0, len(pending)),
		TopModerators:   toLeaderboard(moderators),
		TopContributors: toLeaderboard(contributors),
		GeneratedAt:     now,
	}
	for _, p := range pending {
		summary.PendingByEntity = append(summary.PendingByEntity, dto.PendingByEntity{EntityType: p.EntityType, Count: p.Count})
	}
	if oldest != nil {
		view := toEditView(*oldest, true)
		summary.OldestPending = &view
	}
	for _, r := range reviews {
		switch r.Status {
		case models.EditStatusApplied:
			summary.WeeklyApproved = r.Count
		case models.EditStatusRejected:
			summary.WeeklyRejected = r.Count
		}
	}
	return summary, nil
}

func toLeaderboard(volumes []models.UserVolume) []dto.LeaderboardEntry {
	entries := make([]dto.LeaderboardEntry, 0, len(volumes))
	for _, v := range volumes {
		entries = append(entries, dto.LeaderboardEntry{PublicID: v.PublicID, DisplayName: v.DisplayName, Count: v.Count})
	}
	return entries
}
