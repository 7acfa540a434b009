// Package assignment defines the Assignment entity (role→user binding).
package assignment

import (
	"time"

	"github.com/xraph/aegis/id"
)

// Assignment binds a role to a user, optionally until an expiry instant.
// An assignment is active when ExpiresAt is nil or strictly after now.
type Assignment struct {
	ID         id.AssignmentID `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	RoleID     id.RoleID       `json:"role_id" db:"role_id"`
	AssignedBy string          `json:"assigned_by,omitempty" db:"assigned_by"`
	AssignedAt time.Time       `json:"assigned_at" db:"assigned_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
}

// Active reports whether the assignment is in force at the given instant.
func (a *Assignment) Active(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	UserID string     `json:"user_id,omitempty"`
	RoleID *id.RoleID `json:"role_id,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}
