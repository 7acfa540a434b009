package assignment

import (
	"context"
	"time"

	"github.com/xraph/aegis/id"
)

// Store defines persistence operations for role assignments.
//
// At most one active assignment exists per (user, role) pair. Stores
// enforce this with a uniqueness constraint on the pair: CreateAssignment
// first discards any expired row for the pair, then inserts, returning
// store.ErrDuplicate when an active assignment is already present.
type Store interface {
	// CreateAssignment persists a new assignment.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// GetAssignment retrieves an assignment by ID.
	GetAssignment(ctx context.Context, asgnID id.AssignmentID) (*Assignment, error)

	// DeleteAssignment removes the assignment binding a user to a role.
	// It reports whether a row was removed.
	DeleteAssignment(ctx context.Context, userID string, roleID id.RoleID) (bool, error)

	// ListAssignments returns assignments matching the filter.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// CountAssignments returns the number of assignments matching the filter.
	CountAssignments(ctx context.Context, filter *ListFilter) (int64, error)

	// ListActiveAssignmentsForUser returns the user's assignments that are
	// active at the given instant (expiry unset or strictly after now).
	ListActiveAssignmentsForUser(ctx context.Context, userID string, now time.Time) ([]*Assignment, error)

	// ListAssignmentsForRole returns all assignments for a given role.
	ListAssignmentsForRole(ctx context.Context, roleID id.RoleID) ([]*Assignment, error)

	// CountAssignmentsForRole returns the number of assignments for a role,
	// expired or not.
	CountAssignmentsForRole(ctx context.Context, roleID id.RoleID) (int64, error)

	// DeleteExpiredAssignments removes assignments whose expiry is at or
	// before the given time. Returns the number of rows removed.
	DeleteExpiredAssignments(ctx context.Context, now time.Time) (int64, error)

	// DeleteAssignmentsByUser removes all assignments for a user.
	DeleteAssignmentsByUser(ctx context.Context, userID string) error

	// DeleteAssignmentsByRole removes all assignments for a role.
	DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error
}
