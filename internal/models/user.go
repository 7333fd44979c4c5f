package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleCommunity UserRole = "COMMUNITY"
	RoleCandidate UserRole = "CANDIDATE"
	RoleModerator UserRole = "MODERATOR"
	RoleAdmin     UserRole = "ADMIN"
)

// IsModerator reports whether the role carries moderation privileges.
func (r UserRole) IsModerator() bool {
	return r == RoleModerator || r == RoleAdmin
}

// User represents a registered contributor stored in the users table.
// PublicID is the opaque identifier exposed on public pages; the internal
// id and email never leave moderator-facing surfaces.
type User struct {
	ID            string    `db:"id" json:"id"`
	PublicID      string    `db:"public_id" json:"public_id"`
	Email         string    `db:"email" json:"email"`
	DisplayName   string    `db:"display_name" json:"display_name"`
	Role          UserRole  `db:"role" json:"role"`
	EditsAccepted int       `db:"edits_accepted" json:"edits_accepted"`
	EditsRejected int       `db:"edits_rejected" json:"edits_rejected"`
	EditsPending  int       `db:"edits_pending" json:"edits_pending"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
