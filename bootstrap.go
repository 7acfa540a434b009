package aegis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

// defaultPermissions is the catalog seeded by Initialize. All entries
// are system permissions and cannot be deleted through the engine.
var defaultPermissions = []struct {
	resource    string
	action      string
	description string
}{
	{"content", "read", "View content entries"},
	{"content", "create", "Create content entries"},
	{"content", "update", "Edit content entries"},
	{"content", "delete", "Delete content entries"},
	{"content", "publish", "Publish and unpublish content"},
	{"media", "read", "Browse the media library"},
	{"media", "upload", "Upload media files"},
	{"media", "update", "Edit media metadata"},
	{"media", "delete", "Delete media files"},
	{"user", "read", "View user accounts"},
	{"user", "create", "Create user accounts"},
	{"user", "update", "Edit user accounts"},
	{"user", "delete", "Delete user accounts"},
	{"role", "read", "View roles and their permissions"},
	{"role", "manage", "Create, edit, delete, and assign roles"},
	{"audit", "read", "View the audit trail"},
	{"audit", "export", "Export the audit trail"},
	{"system", "read", "View system settings"},
	{"system", "manage", "Change system settings"},
}

// Initialize seeds the default permission catalog and the two system
// roles: "admin" with every permission and "user" with read-level
// access. It is idempotent; existing permissions and roles are left
// untouched, so repeated startup calls are safe.
func (e *Engine) Initialize(ctx context.Context) error {
	var createdPerms, createdRoles int

	for _, dp := range defaultPermissions {
		if _, err := e.ensurePermission(ctx, dp.resource, dp.action, dp.description, &createdPerms); err != nil {
			return err
		}
	}

	// The admin role gets every permission that exists at this point,
	// host-registered ones included, not only the default catalog.
	existing, err := e.store.ListPermissions(ctx, nil)
	if err != nil {
		return fmt.Errorf("aegis: initialize: list permissions: %w", err)
	}
	allPerms := make([]id.PermissionID, 0, len(existing))
	readPerms := make([]id.PermissionID, 0, len(existing))
	for _, p := range existing {
		allPerms = append(allPerms, p.ID)
		if p.Action == "read" {
			readPerms = append(readPerms, p.ID)
		}
	}

	if err := e.ensureRole(ctx, RoleAdmin, "Full access to every resource", allPerms, &createdRoles); err != nil {
		return err
	}
	if err := e.ensureRole(ctx, RoleUser, "Read-only access", readPerms, &createdRoles); err != nil {
		return err
	}

	if createdPerms > 0 || createdRoles > 0 {
		e.audit(ctx, actorID(ctx), "rbac_initialized", "system", "",
			map[string]any{"permissions_created": createdPerms, "roles_created": createdRoles}, true)
	}

	e.logger.Info("rbac initialized",
		slog.Int("permissions_created", createdPerms),
		slog.Int("roles_created", createdRoles),
	)

	return nil
}

func (e *Engine) ensurePermission(ctx context.Context, resource, action, description string, created *int) (*permission.Permission, error) {
	p, err := e.store.GetPermissionByResourceAction(ctx, resource, action)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("aegis: initialize permission %s:%s: %w", resource, action, err)
	}

	nowT := e.now()
	p = &permission.Permission{
		ID:          id.NewPermissionID(),
		Name:        resource + ":" + action,
		Description: description,
		Resource:    resource,
		Action:      action,
		IsSystem:    true,
		CreatedAt:   nowT,
		UpdatedAt:   nowT,
	}
	if err := e.store.CreatePermission(ctx, p); err != nil {
		// A concurrent Initialize may have won the race.
		if errors.Is(err, store.ErrDuplicate) {
			return e.store.GetPermissionByResourceAction(ctx, resource, action)
		}
		return nil, fmt.Errorf("aegis: initialize permission %s:%s: %w", resource, action, err)
	}
	*created++
	return p, nil
}

func (e *Engine) ensureRole(ctx context.Context, name, description string, permIDs []id.PermissionID, created *int) error {
	_, err := e.store.GetRoleByName(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("aegis: initialize role %q: %w", name, err)
	}

	nowT := e.now()
	r := &role.Role{
		ID:          id.NewRoleID(),
		Name:        name,
		Description: description,
		IsSystem:    true,
		CreatedAt:   nowT,
		UpdatedAt:   nowT,
	}
	if err := e.store.CreateRole(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("aegis: initialize role %q: %w", name, err)
	}
	if err := e.store.SetRolePermissions(ctx, r.ID, permIDs); err != nil {
		return fmt.Errorf("aegis: initialize role %q permissions: %w", name, err)
	}
	*created++
	return nil
}
