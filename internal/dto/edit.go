package dto

import (
	"encoding/json"
	"time"

	"github.com/openballot/openballot-api/internal/models"
)

// CreateEditRequest payload for proposing a single-field change.
// NewValue accepts any JSON value; it is normalized to a string before
// storage.
type CreateEditRequest struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Field      string          `json:"field"`
	NewValue   json.RawMessage `json:"new_value"`
	Rationale  string          `json:"rationale"`
}

// ReviewEditRequest captures the moderator decision and optional note.
type ReviewEditRequest struct {
	Decision models.EditStatus `json:"decision"`
	Note     string            `json:"note"`
}

// EditQuery mirrors supported listing filters. User is the submitter's
// public identifier, never the internal id.
type EditQuery struct {
	Status     []models.EditStatus
	EntityType models.EntityType
	EntityID   string
	User       string
	Page       int
	PageSize   int
}

// Submitter is the public-safe description of the proposing user. Email is
// populated only for moderator viewers.
type Submitter struct {
	PublicID    string `json:"public_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// EditView is the externally visible projection of an edit record.
type EditView struct {
	ID            string            `json:"id"`
	EntityType    models.EntityType `json:"entity_type"`
	EntityID      string            `json:"entity_id"`
	Field         string            `json:"field"`
	OldValue      string            `json:"old_value"`
	NewValue      string            `json:"new_value"`
	Rationale     string            `json:"rationale"`
	Status        models.EditStatus `json:"status"`
	Submitter     Submitter         `json:"submitter"`
	ModeratorNote *string           `json:"moderator_note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
}

// StatusCounts summarises a user's edits grouped by status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Applied    int `json:"applied"`
	Rejected   int `json:"rejected"`
	Superseded int `json:"superseded"`
}

// UserEditHistory is the per-user public history payload.
type UserEditHistory struct {
	User   Submitter    `json:"user"`
	Counts StatusCounts `json:"counts"`
	Edits  []EditView   `json:"edits"`
}
