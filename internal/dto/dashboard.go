package dto

import (
	"time"

	"github.com/openballot/openballot-api/internal/models"
)

// LeaderboardEntry ranks a user by review or contribution volume.
type LeaderboardEntry struct {
	PublicID    string `json:"public_id"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
}

// PendingByEntity counts pending edits for one entity type.
type PendingByEntity struct {
	EntityType models.EntityType `json:"entity_type"`
	Count      int               `json:"count"`
}

// ModerationDashboardResponse aggregates queue health for moderators.
type ModerationDashboardResponse struct {
	PendingByEntity []PendingByEntity  `json:"pending_by_entity"`
	OldestPending   *EditView          `json:"oldest_pending,omitempty"`
	WeeklyApproved  int                `json:"weekly_approved"`
	WeeklyRejected  int                `json:"weekly_rejected"`
	TopModerators   []LeaderboardEntry `json:"top_moderators"`
	TopContributors []LeaderboardEntry `json:"top_contributors"`
	GeneratedAt     time.Time          `json:"generated_at"`
}
