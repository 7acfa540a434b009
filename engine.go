package aegis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/hook"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

// Engine is the central permission engine. It resolves checks against
// role assignments, manages roles and permissions, and records every
// decision and mutation in the audit trail.
type Engine struct {
	store  store.Store
	cache  Cache
	hooks  *hook.Registry
	logger *slog.Logger
	config Config
	now    func() time.Time
}

// NewEngine creates a new Aegis engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("aegis: store is required")
	}
	if e.hooks == nil {
		e.hooks = hook.NewRegistry(e.logger)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Hooks returns the hook registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown, notifying Shutdown hooks.
func (e *Engine) Stop(ctx context.Context) error {
	e.hooks.EmitShutdown(ctx)
	return nil
}

// ──────────────────────────────────────────────────
// Permission checks
// ──────────────────────────────────────────────────

// UserHasPermission reports whether the user may perform action on
// resource. This is the pure predicate: it writes no audit entries.
//
// baseRole is the caller's session role; when it matches the configured
// superuser role the check returns true without touching the store.
// Otherwise the decision comes from permissions granted through
// non-expired role assignments, matched by exact (resource, action)
// string comparison. Store errors deny and propagate.
func (e *Engine) UserHasPermission(ctx context.Context, userID, baseRole, resource, action string) (bool, error) {
	if baseRole == e.config.superuserRole() {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	if e.cache != nil {
		if allowed, ok := e.cache.Get(ctx, userID, resource, action); ok {
			return allowed, nil
		}
	}

	perms, err := e.store.ListPermissionsForUser(ctx, userID, e.now())
	if err != nil {
		return false, fmt.Errorf("aegis: resolve permissions for %s: %w", userID, err)
	}

	allowed := false
	for _, p := range perms {
		if p.Resource == resource && p.Action == action {
			allowed = true
			break
		}
	}

	if e.cache != nil {
		e.cache.Set(ctx, userID, resource, action, allowed)
	}

	return allowed, nil
}

// CheckPermission is the audited entry point used by middleware and
// handlers. It evaluates UserHasPermission and records the decision,
// granted or denied, in the audit trail. A store failure is recorded
// as a denial before the error propagates.
func (e *Engine) CheckPermission(ctx context.Context, userID, baseRole, resource, action string) (bool, error) {
	allowed, err := e.UserHasPermission(ctx, userID, baseRole, resource, action)
	if err != nil {
		e.audit(ctx, userID, AccessDeniedAction(resource, action), resource, "",
			map[string]any{"error": err.Error()}, false)
		e.hooks.EmitPermissionChecked(ctx, userID, resource, action, false)
		return false, err
	}

	auditAction := AccessGrantedAction(resource, action)
	if !allowed {
		auditAction = AccessDeniedAction(resource, action)
	}
	e.audit(ctx, userID, auditAction, resource, "", nil, allowed)
	e.hooks.EmitPermissionChecked(ctx, userID, resource, action, allowed)

	return allowed, nil
}

// CheckAdminAccess records an admin area visit for the given section
// and reports whether the caller's base role permits it. Only the
// superuser role may enter admin sections.
func (e *Engine) CheckAdminAccess(ctx context.Context, userID, baseRole, section string) bool {
	allowed := baseRole == e.config.superuserRole()
	e.audit(ctx, userID, AdminAccessAction(section), "admin", section, nil, allowed)
	return allowed
}

// ──────────────────────────────────────────────────
// Role management
// ──────────────────────────────────────────────────

// RolePatch describes a partial role update. Nil fields are unchanged.
// A non-nil Permissions slice replaces the role's permission set.
type RolePatch struct {
	Name        *string
	Description *string
	Permissions []id.PermissionID
}

// CreateRole creates a role with the given permission set. Role names
// are unique; a taken name returns ErrDuplicateRole.
func (e *Engine) CreateRole(ctx context.Context, name, description string, permIDs []id.PermissionID) (*role.Role, error) {
	if name == "" {
		return nil, errors.New("aegis: role name is required")
	}

	nowT := e.now()
	r := &role.Role{
		ID:          id.NewRoleID(),
		Name:        name,
		Description: description,
		CreatedAt:   nowT,
		UpdatedAt:   nowT,
	}

	if err := e.store.CreateRole(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.audit(ctx, actorID(ctx), ActionRoleCreated, "role", "",
				map[string]any{"name": name, "error": "duplicate name"}, false)
			return nil, fmt.Errorf("aegis: create role %q: %w", name, ErrDuplicateRole)
		}
		e.audit(ctx, actorID(ctx), ActionRoleCreated, "role", "",
			map[string]any{"name": name, "error": err.Error()}, false)
		return nil, fmt.Errorf("aegis: create role %q: %w", name, err)
	}

	if len(permIDs) > 0 {
		if err := e.store.SetRolePermissions(ctx, r.ID, permIDs); err != nil {
			e.audit(ctx, actorID(ctx), ActionRoleCreated, "role", r.ID.String(),
				map[string]any{"name": name, "error": err.Error()}, false)
			return nil, fmt.Errorf("aegis: set permissions for role %q: %w", name, err)
		}
	}

	e.audit(ctx, actorID(ctx), ActionRoleCreated, "role", r.ID.String(),
		map[string]any{"name": name, "permission_count": len(permIDs)}, true)
	e.invalidateAllDecisions(ctx)
	e.hooks.EmitRoleCreated(ctx, r)

	return r, nil
}

// UpdateRole applies a partial update to a role. System roles cannot
// be renamed and their permission sets cannot change; only their
// description may be edited.
func (e *Engine) UpdateRole(ctx context.Context, roleID id.RoleID, patch RolePatch) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
				map[string]any{"error": "not found"}, false)
			return nil, fmt.Errorf("aegis: update role %s: %w", roleID, ErrRoleNotFound)
		}
		return nil, fmt.Errorf("aegis: update role %s: %w", roleID, err)
	}

	if patch.Name != nil && *patch.Name != r.Name {
		if r.IsSystem {
			e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
				map[string]any{"name": r.Name, "error": "system role rename"}, false)
			return nil, fmt.Errorf("aegis: rename role %q: %w", r.Name, ErrSystemRoleImmutable)
		}
		r.Name = *patch.Name
	}
	if patch.Permissions != nil && r.IsSystem {
		e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
			map[string]any{"name": r.Name, "error": "system role permission change"}, false)
		return nil, fmt.Errorf("aegis: change permissions of role %q: %w", r.Name, ErrSystemRoleImmutable)
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	r.UpdatedAt = e.now()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
				map[string]any{"name": r.Name, "error": "duplicate name"}, false)
			return nil, fmt.Errorf("aegis: update role %s: %w", roleID, ErrDuplicateRole)
		}
		e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
			map[string]any{"name": r.Name, "error": err.Error()}, false)
		return nil, fmt.Errorf("aegis: update role %s: %w", roleID, err)
	}

	if patch.Permissions != nil {
		if err := e.store.SetRolePermissions(ctx, roleID, patch.Permissions); err != nil {
			e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
				map[string]any{"name": r.Name, "error": err.Error()}, false)
			return nil, fmt.Errorf("aegis: set permissions for role %s: %w", roleID, err)
		}
	}

	e.audit(ctx, actorID(ctx), ActionRoleUpdated, "role", roleID.String(),
		map[string]any{"name": r.Name}, true)
	e.invalidateAllDecisions(ctx)
	e.hooks.EmitRoleUpdated(ctx, r)

	return r, nil
}

// DeleteRole removes a role. System roles are immutable, and a role
// that still has assignments, expired ones included, returns ErrRoleInUse.
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.audit(ctx, actorID(ctx), ActionRoleDeleted, "role", roleID.String(),
				map[string]any{"error": "not found"}, false)
			return fmt.Errorf("aegis: delete role %s: %w", roleID, ErrRoleNotFound)
		}
		return fmt.Errorf("aegis: delete role %s: %w", roleID, err)
	}

	if r.IsSystem {
		e.audit(ctx, actorID(ctx), ActionRoleDeleted, "role", roleID.String(),
			map[string]any{"name": r.Name, "error": "system role"}, false)
		return fmt.Errorf("aegis: delete role %q: %w", r.Name, ErrSystemRoleImmutable)
	}

	assigned, err := e.store.CountAssignmentsForRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("aegis: delete role %s: %w", roleID, err)
	}
	if assigned > 0 {
		e.audit(ctx, actorID(ctx), ActionRoleDeleted, "role", roleID.String(),
			map[string]any{"name": r.Name, "assignments": assigned, "error": "role in use"}, false)
		return fmt.Errorf("aegis: delete role %q: %w", r.Name, ErrRoleInUse)
	}

	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		e.audit(ctx, actorID(ctx), ActionRoleDeleted, "role", roleID.String(),
			map[string]any{"name": r.Name, "error": err.Error()}, false)
		return fmt.Errorf("aegis: delete role %s: %w", roleID, err)
	}

	e.audit(ctx, actorID(ctx), ActionRoleDeleted, "role", roleID.String(),
		map[string]any{"name": r.Name}, true)
	e.invalidateAllDecisions(ctx)
	e.hooks.EmitRoleDeleted(ctx, roleID)

	return nil
}

// GetRole retrieves a role by ID.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("aegis: role %s: %w", roleID, ErrRoleNotFound)
		}
		return nil, fmt.Errorf("aegis: role %s: %w", roleID, err)
	}
	return r, nil
}

// GetRoleByName retrieves a role by its unique name.
func (e *Engine) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	r, err := e.store.GetRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("aegis: role %q: %w", name, ErrRoleNotFound)
		}
		return nil, fmt.Errorf("aegis: role %q: %w", name, err)
	}
	return r, nil
}

// ListRoles returns roles matching the filter.
func (e *Engine) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	return e.store.ListRoles(ctx, filter)
}

// CountRoles returns the number of roles matching the filter.
func (e *Engine) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	return e.store.CountRoles(ctx, filter)
}

// ListRolePermissions returns the permissions attached to a role.
func (e *Engine) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	return e.store.ListPermissionsByRole(ctx, roleID)
}

// ──────────────────────────────────────────────────
// Permission management
// ──────────────────────────────────────────────────

// CreatePermission registers a new (resource, action) pair. The pair is
// unique; an existing one returns ErrDuplicatePermission.
func (e *Engine) CreatePermission(ctx context.Context, resource, action, description string) (*permission.Permission, error) {
	if resource == "" || action == "" {
		return nil, errors.New("aegis: permission resource and action are required")
	}

	nowT := e.now()
	p := &permission.Permission{
		ID:          id.NewPermissionID(),
		Name:        resource + ":" + action,
		Description: description,
		Resource:    resource,
		Action:      action,
		CreatedAt:   nowT,
		UpdatedAt:   nowT,
	}

	if err := e.store.CreatePermission(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.audit(ctx, actorID(ctx), ActionPermissionCreated, "permission", "",
				map[string]any{"name": p.Name, "error": "duplicate"}, false)
			return nil, fmt.Errorf("aegis: create permission %q: %w", p.Name, ErrDuplicatePermission)
		}
		e.audit(ctx, actorID(ctx), ActionPermissionCreated, "permission", "",
			map[string]any{"name": p.Name, "error": err.Error()}, false)
		return nil, fmt.Errorf("aegis: create permission %q: %w", p.Name, err)
	}

	e.audit(ctx, actorID(ctx), ActionPermissionCreated, "permission", p.ID.String(),
		map[string]any{"name": p.Name}, true)
	e.hooks.EmitPermissionCreated(ctx, p)

	return p, nil
}

// DeletePermission removes a permission. System permissions are
// immutable, and a permission still attached to any role returns
// ErrPermissionInUse.
func (e *Engine) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	p, err := e.store.GetPermission(ctx, permID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.audit(ctx, actorID(ctx), ActionPermissionDeleted, "permission", permID.String(),
				map[string]any{"error": "not found"}, false)
			return fmt.Errorf("aegis: delete permission %s: %w", permID, ErrPermissionNotFound)
		}
		return fmt.Errorf("aegis: delete permission %s: %w", permID, err)
	}

	if p.IsSystem {
		e.audit(ctx, actorID(ctx), ActionPermissionDeleted, "permission", permID.String(),
			map[string]any{"name": p.Name, "error": "system permission"}, false)
		return fmt.Errorf("aegis: delete permission %q: %w", p.Name, ErrSystemPermissionImmutable)
	}

	attached, err := e.store.CountRolesWithPermission(ctx, permID)
	if err != nil {
		return fmt.Errorf("aegis: delete permission %s: %w", permID, err)
	}
	if attached > 0 {
		e.audit(ctx, actorID(ctx), ActionPermissionDeleted, "permission", permID.String(),
			map[string]any{"name": p.Name, "roles": attached, "error": "permission in use"}, false)
		return fmt.Errorf("aegis: delete permission %q: %w", p.Name, ErrPermissionInUse)
	}

	if err := e.store.DeletePermission(ctx, permID); err != nil {
		e.audit(ctx, actorID(ctx), ActionPermissionDeleted, "permission", permID.String(),
			map[string]any{"name": p.Name, "error": err.Error()}, false)
		return fmt.Errorf("aegis: delete permission %s: %w", permID, err)
	}

	e.audit(ctx, actorID(ctx), ActionPermissionDeleted, "permission", permID.String(),
		map[string]any{"name": p.Name}, true)
	e.invalidateAllDecisions(ctx)
	e.hooks.EmitPermissionDeleted(ctx, permID)

	return nil
}

// GetPermission retrieves a permission by ID.
func (e *Engine) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	p, err := e.store.GetPermission(ctx, permID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("aegis: permission %s: %w", permID, ErrPermissionNotFound)
		}
		return nil, fmt.Errorf("aegis: permission %s: %w", permID, err)
	}
	return p, nil
}

// ListPermissions returns permissions matching the filter.
func (e *Engine) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	return e.store.ListPermissions(ctx, filter)
}

// CountPermissions returns the number of permissions matching the filter.
func (e *Engine) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	return e.store.CountPermissions(ctx, filter)
}

// PermissionUsage reports how widely a permission is granted.
type PermissionUsage struct {
	Roles int64 `json:"roles"`
	Users int64 `json:"users"`
}

// GetPermissionUsage returns how many roles carry the permission and
// how many distinct users hold it through active assignments.
func (e *Engine) GetPermissionUsage(ctx context.Context, permID id.PermissionID) (*PermissionUsage, error) {
	roles, err := e.store.CountRolesWithPermission(ctx, permID)
	if err != nil {
		return nil, fmt.Errorf("aegis: permission usage %s: %w", permID, err)
	}
	users, err := e.store.CountUsersWithPermission(ctx, permID, e.now())
	if err != nil {
		return nil, fmt.Errorf("aegis: permission usage %s: %w", permID, err)
	}
	return &PermissionUsage{Roles: roles, Users: users}, nil
}

// GetUserPermissions returns the permissions the user currently holds
// through non-expired role assignments.
func (e *Engine) GetUserPermissions(ctx context.Context, userID string) ([]*permission.Permission, error) {
	return e.store.ListPermissionsForUser(ctx, userID, e.now())
}

// ──────────────────────────────────────────────────
// Assignment management
// ──────────────────────────────────────────────────

// AssignRole grants a role to a user, optionally until expiresAt.
// A second active assignment of the same role returns
// ErrDuplicateAssignment; an expired one is replaced.
func (e *Engine) AssignRole(ctx context.Context, userID string, roleID id.RoleID, expiresAt *time.Time) (*assignment.Assignment, error) {
	if userID == "" {
		return nil, errors.New("aegis: user ID is required")
	}

	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.audit(ctx, actorID(ctx), ActionRoleAssigned, "role", roleID.String(),
				map[string]any{"user_id": userID, "error": "role not found"}, false)
			return nil, fmt.Errorf("aegis: assign role %s: %w", roleID, ErrRoleNotFound)
		}
		return nil, fmt.Errorf("aegis: assign role %s: %w", roleID, err)
	}

	a := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: actorID(ctx),
		AssignedAt: e.now(),
		ExpiresAt:  expiresAt,
	}

	if err := e.store.CreateAssignment(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.audit(ctx, actorID(ctx), ActionRoleAssigned, "role", roleID.String(),
				map[string]any{"user_id": userID, "role_name": r.Name, "error": "already assigned"}, false)
			return nil, fmt.Errorf("aegis: assign role %q to %s: %w", r.Name, userID, ErrDuplicateAssignment)
		}
		e.audit(ctx, actorID(ctx), ActionRoleAssigned, "role", roleID.String(),
			map[string]any{"user_id": userID, "role_name": r.Name, "error": err.Error()}, false)
		return nil, fmt.Errorf("aegis: assign role %q to %s: %w", r.Name, userID, err)
	}

	details := map[string]any{"user_id": userID, "role_name": r.Name}
	if expiresAt != nil {
		details["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
	}
	e.audit(ctx, actorID(ctx), ActionRoleAssigned, "role", roleID.String(), details, true)
	e.invalidateUserDecisions(ctx, userID)
	e.hooks.EmitRoleAssigned(ctx, a)

	return a, nil
}

// RemoveRole revokes a role from a user. It reports whether an
// assignment was actually removed; removing a role the user does not
// hold is not an error, only a false result.
func (e *Engine) RemoveRole(ctx context.Context, userID string, roleID id.RoleID) (bool, error) {
	removed, err := e.store.DeleteAssignment(ctx, userID, roleID)
	if err != nil {
		e.audit(ctx, actorID(ctx), ActionRoleRemoved, "role", roleID.String(),
			map[string]any{"user_id": userID, "error": err.Error()}, false)
		return false, fmt.Errorf("aegis: remove role %s from %s: %w", roleID, userID, err)
	}

	e.audit(ctx, actorID(ctx), ActionRoleRemoved, "role", roleID.String(),
		map[string]any{"user_id": userID, "removed": removed}, removed)
	if removed {
		e.invalidateUserDecisions(ctx, userID)
		e.hooks.EmitRoleRemoved(ctx, userID, roleID)
	}

	return removed, nil
}

// ListUserAssignments returns the user's assignments active right now.
func (e *Engine) ListUserAssignments(ctx context.Context, userID string) ([]*assignment.Assignment, error) {
	return e.store.ListActiveAssignmentsForUser(ctx, userID, e.now())
}

// ListUserRoles resolves the roles the user currently holds through
// non-expired assignments.
func (e *Engine) ListUserRoles(ctx context.Context, userID string) ([]*role.Role, error) {
	asgns, err := e.store.ListActiveAssignmentsForUser(ctx, userID, e.now())
	if err != nil {
		return nil, fmt.Errorf("aegis: roles for %s: %w", userID, err)
	}
	roles := make([]*role.Role, 0, len(asgns))
	for _, a := range asgns {
		r, err := e.store.GetRole(ctx, a.RoleID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("aegis: roles for %s: %w", userID, err)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// ListRoleAssignments returns all assignments for a role.
func (e *Engine) ListRoleAssignments(ctx context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	return e.store.ListAssignmentsForRole(ctx, roleID)
}

// PurgeExpiredAssignments removes assignments whose expiry has passed.
// Returns the number removed. Intended for periodic maintenance jobs.
func (e *Engine) PurgeExpiredAssignments(ctx context.Context) (int64, error) {
	return e.store.DeleteExpiredAssignments(ctx, e.now())
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// actorID returns the audit user for the current request.
func actorID(ctx context.Context) string {
	if a, ok := ActorFromContext(ctx); ok && a.ID != "" {
		return a.ID
	}
	return AnonymousUser
}

func (e *Engine) invalidateUserDecisions(ctx context.Context, userID string) {
	if e.cache != nil {
		e.cache.InvalidateUser(ctx, userID)
	}
}

// invalidateAllDecisions drops every cached decision. Role and
// permission mutations can change the answer for any user.
func (e *Engine) invalidateAllDecisions(ctx context.Context) {
	if e.cache != nil {
		e.cache.InvalidateAll(ctx)
	}
}
