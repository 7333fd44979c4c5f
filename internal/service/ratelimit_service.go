package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openballot/openballot-api/pkg/config"
)

type windowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitService throttles edit submissions per user and client address
// using a fixed Redis window. Counter failures never block a request.
type RateLimitService struct {
	counter windowCounter
	window  time.Duration
	limit   int64
	enabled bool
	logger  *zap.Logger
}

func NewRateLimitService(counter windowCounter, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	limit := int64(cfg.Limit)
	if limit <= 0 {
		limit = 10
	}
	return &RateLimitService{
		counter: counter,
		window:  window,
		limit:   limit,
		enabled: cfg.Enabled && counter != nil,
		logger:  logger,
	}
}

// Allow increments the window counter for the given user and client IP and
// reports whether the request is within the limit.
func (s *RateLimitService) Allow(ctx context.Context, userID, clientIP string) bool {
	if s == nil || !s.enabled {
		return true
	}

	key := fmt.Sprintf("ratelimit:edits:%s:%s", userID, clientIP)
	count, err := s.counter.IncrWindow(ctx, key, s.window)
	if err != nil {
		s.logger.Warn("rate limit counter unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err))
		return true
	}

	if count > s.limit {
		s.logger.Info("rate limit exceeded",
			zap.String("user_id", userID),
			zap.String("client_ip", clientIP),
			zap.Int64("count", count),
			zap.Int64("limit", s.limit))
		return false
	}
	return true
}
