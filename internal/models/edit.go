package models

import "time"

// EntityType enumerates the record kinds open to community edits.
type EntityType string

const (
	EntityCandidate EntityType = "CANDIDATE"
	EntityRace      EntityType = "RACE"
	EntityOffice    EntityType = "OFFICE"
	EntityGuide     EntityType = "GUIDE"
)

// EditStatus captures the workflow states of a proposed edit.
//
// PENDING is the only non-terminal state. Approval applies the value and
// records the edit as APPLIED in a single transition; there is no separate
// approved-but-unapplied state. SUPERSEDED marks a pending edit invalidated
// because a competing edit for the same field was approved first.
type EditStatus string

const (
	EditStatusPending    EditStatus = "PENDING"
	EditStatusApplied    EditStatus = "APPLIED"
	EditStatusRejected   EditStatus = "REJECTED"
	EditStatusSuperseded EditStatus = "SUPERSEDED"
)

// Terminal reports whether the status admits no further transitions.
func (s EditStatus) Terminal() bool {
	return s == EditStatusApplied || s == EditStatusRejected || s == EditStatusSuperseded
}

// Edit is a proposed change to one field of one entity. Rows are permanent
// audit records and are never hard-deleted by this service.
type Edit struct {
	ID            string     `db:"id" json:"id"`
	EntityType    EntityType `db:"entity_type" json:"entity_type"`
	EntityID      string     `db:"entity_id" json:"entity_id"`
	Field         string     `db:"field" json:"field"`
	OldValue      string     `db:"old_value" json:"old_value"`
	NewValue      string     `db:"new_value" json:"new_value"`
	Rationale     string     `db:"rationale" json:"rationale"`
	Status        EditStatus `db:"status" json:"status"`
	UserID        string     `db:"user_id" json:"user_id"`
	ModeratorID   *string    `db:"moderator_id" json:"moderator_id,omitempty"`
	ModeratorNote *string    `db:"moderator_note" json:"moderator_note,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ReviewedAt    *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// EditFilter constrains listing queries.
type EditFilter struct {
	Status      []EditStatus
	EntityType  EntityType
	EntityID    string
	UserID      string
	ModeratorID string
	Limit       int
	Offset      int
}

// EditWithSubmitter joins an edit row with the submitting user's public
// identity for list and history views.
type EditWithSubmitter struct {
	Edit
	SubmitterPublicID string `db:"submitter_public_id"`
	SubmitterName     string `db:"submitter_name"`
	SubmitterEmail    string `db:"submitter_email"`
}

// EntityPendingCount aggregates the pending queue per entity type.
type EntityPendingCount struct {
	EntityType EntityType `db:"entity_type"`
	Count      int        `db:"count"`
}

// UserVolume ranks a user by edit or review volume.
type UserVolume struct {
	PublicID    string `db:"public_id"`
	DisplayName string `db:"display_name"`
	Count       int    `db:"count"`
}

// EditStatusCount holds a grouped count of edits per status.
type EditStatusCount struct {
	Status EditStatus `db:"status"`
	Count  int        `db:"count"`
}

// editableFields is the per-entity allowlist of community-editable fields.
// Field names are the public API names; the repository maps them onto
// canonical and wiki-override columns.
var editableFields = map[EntityType][]string{
	EntityCandidate: {"name", "party", "bio", "website", "occupation"},
	EntityRace:      {"title", "summary", "election_date"},
	EntityOffice:    {"title", "description", "term_length"},
	EntityGuide:     {"title", "intro", "region"},
}

// SupportedEntity reports whether the entity type accepts community edits.
func SupportedEntity(entity EntityType) bool {
	_, ok := editableFields[entity]
	return ok
}

// FieldEditable reports whether the field is on the entity's allowlist.
func FieldEditable(entity EntityType, field string) bool {
	for _, f := range editableFields[entity] {
		if f == field {
			return true
		}
	}
	return false
}

// EditableFields returns the allowlisted field names for an entity type.
func EditableFields(entity EntityType) []string {
	fields := editableFields[entity]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}
