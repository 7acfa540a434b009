package hook

import (
	"context"
	"log/slog"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
)

// Named entry types pair a hook with its name for logging.

type permissionCheckedEntry struct {
	name string
	hook PermissionChecked
}
type roleCreatedEntry struct {
	name string
	hook RoleCreated
}
type roleUpdatedEntry struct {
	name string
	hook RoleUpdated
}
type roleDeletedEntry struct {
	name string
	hook RoleDeleted
}
type permissionCreatedEntry struct {
	name string
	hook PermissionCreated
}
type permissionDeletedEntry struct {
	name string
	hook PermissionDeleted
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type roleRemovedEntry struct {
	name string
	hook RoleRemoved
}
type auditWriteFailedEntry struct {
	name string
	hook AuditWriteFailed
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events.
// It type-caches hooks at registration time so emit calls iterate
// only over hooks implementing the relevant event.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	permissionChecked []permissionCheckedEntry
	roleCreated       []roleCreatedEntry
	roleUpdated       []roleUpdatedEntry
	roleDeleted       []roleDeletedEntry
	permissionCreated []permissionCreatedEntry
	permissionDeleted []permissionDeletedEntry
	roleAssigned      []roleAssignedEntry
	roleRemoved       []roleRemovedEntry
	auditWriteFailed  []auditWriteFailedEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable
// event caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if x, ok := h.(PermissionChecked); ok {
		r.permissionChecked = append(r.permissionChecked, permissionCheckedEntry{name, x})
	}
	if x, ok := h.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, roleCreatedEntry{name, x})
	}
	if x, ok := h.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, roleUpdatedEntry{name, x})
	}
	if x, ok := h.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, roleDeletedEntry{name, x})
	}
	if x, ok := h.(PermissionCreated); ok {
		r.permissionCreated = append(r.permissionCreated, permissionCreatedEntry{name, x})
	}
	if x, ok := h.(PermissionDeleted); ok {
		r.permissionDeleted = append(r.permissionDeleted, permissionDeletedEntry{name, x})
	}
	if x, ok := h.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, x})
	}
	if x, ok := h.(RoleRemoved); ok {
		r.roleRemoved = append(r.roleRemoved, roleRemovedEntry{name, x})
	}
	if x, ok := h.(AuditWriteFailed); ok {
		r.auditWriteFailed = append(r.auditWriteFailed, auditWriteFailedEntry{name, x})
	}
	if x, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, x})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitPermissionChecked notifies all hooks that implement PermissionChecked.
func (r *Registry) EmitPermissionChecked(ctx context.Context, userID, resource, action string, allowed bool) {
	for _, e := range r.permissionChecked {
		if err := e.hook.OnPermissionChecked(ctx, userID, resource, action, allowed); err != nil {
			r.logHookError("OnPermissionChecked", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all hooks that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all hooks that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all hooks that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Permission event emitters
// ──────────────────────────────────────────────────

// EmitPermissionCreated notifies all hooks that implement PermissionCreated.
func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionCreated {
		if err := e.hook.OnPermissionCreated(ctx, p); err != nil {
			r.logHookError("OnPermissionCreated", e.name, err)
		}
	}
}

// EmitPermissionDeleted notifies all hooks that implement PermissionDeleted.
func (r *Registry) EmitPermissionDeleted(ctx context.Context, permID id.PermissionID) {
	for _, e := range r.permissionDeleted {
		if err := e.hook.OnPermissionDeleted(ctx, permID); err != nil {
			r.logHookError("OnPermissionDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Assignment event emitters
// ──────────────────────────────────────────────────

// EmitRoleAssigned notifies all hooks that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, a); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitRoleRemoved notifies all hooks that implement RoleRemoved.
func (r *Registry) EmitRoleRemoved(ctx context.Context, userID string, roleID id.RoleID) {
	for _, e := range r.roleRemoved {
		if err := e.hook.OnRoleRemoved(ctx, userID, roleID); err != nil {
			r.logHookError("OnRoleRemoved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Audit event emitters
// ──────────────────────────────────────────────────

// EmitAuditWriteFailed notifies all hooks that implement AuditWriteFailed.
func (r *Registry) EmitAuditWriteFailed(ctx context.Context, entry *auditlog.Entry, failure error) {
	for _, e := range r.auditWriteFailed {
		if err := e.hook.OnAuditWriteFailed(ctx, entry, failure); err != nil {
			r.logHookError("OnAuditWriteFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(event, hookName string, err error) {
	r.logger.Warn("hook error",
		slog.String("event", event),
		slog.String("hook", hookName),
		slog.String("error", err.Error()),
	)
}
