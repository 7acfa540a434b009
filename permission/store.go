package permission

import (
	"context"
	"time"

	"github.com/xraph/aegis/id"
)

// Store defines persistence operations for permissions.
//
// The (resource, action) pair is unique. CreatePermission returns
// store.ErrDuplicate when a permission with the same pair already exists.
type Store interface {
	// CreatePermission persists a new permission.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves a permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByName retrieves a permission by its name label.
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)

	// GetPermissionByResourceAction retrieves a permission by its unique
	// (resource, action) pair.
	GetPermissionByResourceAction(ctx context.Context, resource, action string) (*Permission, error)

	// UpdatePermission persists changes to a permission.
	UpdatePermission(ctx context.Context, p *Permission) error

	// DeletePermission removes a permission by ID.
	DeletePermission(ctx context.Context, permID id.PermissionID) error

	// ListPermissions returns permissions matching the filter.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// CountPermissions returns the number of permissions matching the filter.
	CountPermissions(ctx context.Context, filter *ListFilter) (int64, error)

	// ListPermissionsByRole returns all permissions attached to a role.
	ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*Permission, error)

	// ListPermissionsForUser returns all permissions granted to a user
	// through role assignments active at the given instant. An assignment
	// is active when its expiry is unset or strictly after now.
	ListPermissionsForUser(ctx context.Context, userID string, now time.Time) ([]*Permission, error)

	// CountRolesWithPermission returns how many roles have the permission
	// attached.
	CountRolesWithPermission(ctx context.Context, permID id.PermissionID) (int64, error)

	// CountUsersWithPermission returns how many distinct users hold the
	// permission through role assignments active at the given instant.
	CountUsersWithPermission(ctx context.Context, permID id.PermissionID, now time.Time) (int64, error)
}
