// Package hook defines the observer system for Aegis.
// Hooks are notified of lifecycle events (permission checked, role
// created, audit write failed, etc.) and can react: logging, metrics,
// alerting, cache warming.
//
// Each lifecycle event is a separate interface so hooks opt in only
// to the events they care about.
package hook

import (
	"context"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// PermissionChecked is called after a permission check completes.
type PermissionChecked interface {
	OnPermissionChecked(ctx context.Context, userID, resource, action string, allowed bool) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// ──────────────────────────────────────────────────
// Permission lifecycle hooks
// ──────────────────────────────────────────────────

// PermissionCreated is called after a permission is created.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionDeleted is called after a permission is deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error
}

// ──────────────────────────────────────────────────
// Assignment lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a role is assigned to a user.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// RoleRemoved is called after a role is removed from a user.
type RoleRemoved interface {
	OnRoleRemoved(ctx context.Context, userID string, roleID id.RoleID) error
}

// ──────────────────────────────────────────────────
// Audit hooks
// ──────────────────────────────────────────────────

// AuditWriteFailed is called when an audit entry could not be persisted.
// Audit writes are best-effort, so this is the only signal besides the
// engine's log that the trail has a gap.
type AuditWriteFailed interface {
	OnAuditWriteFailed(ctx context.Context, e *auditlog.Entry, err error) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
