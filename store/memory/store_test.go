package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &role.Role{
		ID:          id.NewRoleID(),
		Name:        "editor",
		Description: "Can edit content",
	}

	// Create
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Duplicate name rejected.
	dup := &role.Role{ID: id.NewRoleID(), Name: "editor"}
	if err := s.CreateRole(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Get
	got, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "editor" {
		t.Fatalf("expected editor, got %s", got.Name)
	}

	// GetByName
	got, err = s.GetRoleByName(ctx, "editor")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID {
		t.Fatal("name lookup mismatch")
	}

	// Update
	r.Description = "Can edit and publish content"
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRole(ctx, r.ID)
	if got.Description != "Can edit and publish content" {
		t.Fatal("update failed")
	}

	// List
	list, _ := s.ListRoles(ctx, nil)
	if len(list) != 1 {
		t.Fatalf("expected 1 role, got %d", len(list))
	}

	// Count
	count, _ := s.CountRoles(ctx, nil)
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// Delete
	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetRole(ctx, r.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRoleSearch(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), Name: "content-editor"})
	_ = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), Name: "media-manager"})

	list, _ := s.ListRoles(ctx, &role.ListFilter{Search: "EDIT"})
	if len(list) != 1 || list[0].Name != "content-editor" {
		t.Fatalf("expected content-editor, got %v", list)
	}
}

func TestPermissionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &permission.Permission{
		ID:       id.NewPermissionID(),
		Name:     "content:read",
		Resource: "content",
		Action:   "read",
	}

	if err := s.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}

	// Duplicate (resource, action) rejected.
	dup := &permission.Permission{ID: id.NewPermissionID(), Name: "other", Resource: "content", Action: "read"}
	if err := s.CreatePermission(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.GetPermission(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "content:read" {
		t.Fatal("mismatch")
	}

	got, err = s.GetPermissionByResourceAction(ctx, "content", "read")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Fatal("resource/action lookup mismatch")
	}

	if err := s.DeletePermission(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetPermission(ctx, p.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRolePermissionAttach(t *testing.T) {
	ctx := context.Background()
	s := New()

	roleID := id.NewRoleID()
	perm1 := id.NewPermissionID()
	perm2 := id.NewPermissionID()

	// Create role and permissions.
	_ = s.CreateRole(ctx, &role.Role{ID: roleID, Name: "editor"})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: perm1, Name: "content:read", Resource: "content", Action: "read"})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: perm2, Name: "content:write", Resource: "content", Action: "write"})

	// Attach
	_ = s.AttachPermission(ctx, roleID, perm1)
	_ = s.AttachPermission(ctx, roleID, perm2)

	perms, _ := s.ListRolePermissions(ctx, roleID)
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}

	// ListPermissionsByRole
	permObjs, _ := s.ListPermissionsByRole(ctx, roleID)
	if len(permObjs) != 2 {
		t.Fatalf("expected 2 permission objects, got %d", len(permObjs))
	}

	// Detach
	_ = s.DetachPermission(ctx, roleID, perm1)
	perms, _ = s.ListRolePermissions(ctx, roleID)
	if len(perms) != 1 {
		t.Fatalf("expected 1 permission after detach, got %d", len(perms))
	}

	// SetRolePermissions (replace all)
	_ = s.SetRolePermissions(ctx, roleID, []id.PermissionID{perm1})
	perms, _ = s.ListRolePermissions(ctx, roleID)
	if len(perms) != 1 {
		t.Fatalf("expected 1 permission after set, got %d", len(perms))
	}

	// Deleting a permission removes it from role mappings.
	_ = s.DeletePermission(ctx, perm1)
	perms, _ = s.ListRolePermissions(ctx, roleID)
	if len(perms) != 0 {
		t.Fatalf("expected 0 permissions after delete, got %d", len(perms))
	}
}

func TestAssignmentCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	roleID := id.NewRoleID()
	_ = s.CreateRole(ctx, &role.Role{ID: roleID, Name: "editor"})

	now := time.Now().UTC()
	a := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     "u1",
		RoleID:     roleID,
		AssignedBy: "admin-1",
		AssignedAt: now,
	}

	if err := s.CreateAssignment(ctx, a); err != nil {
		t.Fatal(err)
	}

	// Duplicate active (user, role) rejected.
	dup := &assignment.Assignment{ID: id.NewAssignmentID(), UserID: "u1", RoleID: roleID, AssignedAt: now}
	if err := s.CreateAssignment(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" {
		t.Fatal("mismatch")
	}

	active, _ := s.ListActiveAssignmentsForUser(ctx, "u1", now)
	if len(active) != 1 {
		t.Fatalf("expected 1 active assignment, got %d", len(active))
	}

	forRole, _ := s.ListAssignmentsForRole(ctx, roleID)
	if len(forRole) != 1 {
		t.Fatalf("expected 1 assignment for role, got %d", len(forRole))
	}

	removed, err := s.DeleteAssignment(ctx, "u1", roleID)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected assignment removed")
	}
	removed, _ = s.DeleteAssignment(ctx, "u1", roleID)
	if removed {
		t.Fatal("expected no-op on second delete")
	}
}

func TestAssignmentExpiry(t *testing.T) {
	ctx := context.Background()
	s := New()

	roleID := id.NewRoleID()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	expired := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     "u1",
		RoleID:     roleID,
		AssignedAt: now.Add(-2 * time.Hour),
		ExpiresAt:  &past,
	}
	if err := s.CreateAssignment(ctx, expired); err != nil {
		t.Fatal(err)
	}

	// An expired assignment is invisible to the active listing.
	active, _ := s.ListActiveAssignmentsForUser(ctx, "u1", now)
	if len(active) != 0 {
		t.Fatalf("expected 0 active assignments, got %d", len(active))
	}

	// Re-assigning after expiry replaces the stale row rather than
	// tripping the uniqueness check.
	fresh := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     "u1",
		RoleID:     roleID,
		AssignedAt: now,
	}
	if err := s.CreateAssignment(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	active, _ = s.ListActiveAssignmentsForUser(ctx, "u1", now)
	if len(active) != 1 {
		t.Fatalf("expected 1 active assignment after re-assign, got %d", len(active))
	}
}

func TestDeleteExpiredAssignments(t *testing.T) {
	ctx := context.Background()
	s := New()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	_ = s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), UserID: "u1", RoleID: id.NewRoleID(),
		AssignedAt: now.Add(-time.Hour), ExpiresAt: &past,
	})
	_ = s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), UserID: "u2", RoleID: id.NewRoleID(),
		AssignedAt: now, ExpiresAt: &future,
	})
	_ = s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), UserID: "u3", RoleID: id.NewRoleID(),
		AssignedAt: now,
	})

	purged, err := s.DeleteExpiredAssignments(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}

	count, _ := s.CountAssignments(ctx, nil)
	if count != 2 {
		t.Fatalf("expected 2 remaining, got %d", count)
	}
}

func TestListPermissionsForUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	roleA := id.NewRoleID()
	roleB := id.NewRoleID()
	permRead := id.NewPermissionID()
	permWrite := id.NewPermissionID()

	_ = s.CreateRole(ctx, &role.Role{ID: roleA, Name: "reader"})
	_ = s.CreateRole(ctx, &role.Role{ID: roleB, Name: "writer"})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: permRead, Name: "content:read", Resource: "content", Action: "read"})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: permWrite, Name: "content:write", Resource: "content", Action: "write"})
	_ = s.AttachPermission(ctx, roleA, permRead)
	_ = s.AttachPermission(ctx, roleB, permRead)
	_ = s.AttachPermission(ctx, roleB, permWrite)

	now := time.Now().UTC()
	_ = s.CreateAssignment(ctx, &assignment.Assignment{ID: id.NewAssignmentID(), UserID: "u1", RoleID: roleA, AssignedAt: now})
	_ = s.CreateAssignment(ctx, &assignment.Assignment{ID: id.NewAssignmentID(), UserID: "u1", RoleID: roleB, AssignedAt: now})

	// content:read comes from both roles but must appear once.
	perms, err := s.ListPermissionsForUser(ctx, "u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected 2 deduplicated permissions, got %d", len(perms))
	}

	usersWithRead, _ := s.CountUsersWithPermission(ctx, permRead, now)
	if usersWithRead != 1 {
		t.Fatalf("expected 1 user with content:read, got %d", usersWithRead)
	}

	// An expired assignment does not make its user a holder.
	past := now.Add(-time.Minute)
	_ = s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), UserID: "u2", RoleID: roleA,
		AssignedAt: now.Add(-time.Hour), ExpiresAt: &past,
	})
	usersWithRead, _ = s.CountUsersWithPermission(ctx, permRead, now)
	if usersWithRead != 1 {
		t.Fatalf("expected expired holder excluded, got %d", usersWithRead)
	}
	rolesWithRead, _ := s.CountRolesWithPermission(ctx, permRead)
	if rolesWithRead != 2 {
		t.Fatalf("expected 2 roles with content:read, got %d", rolesWithRead)
	}
}

func TestAuditLogQuery(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	entries := []*auditlog.Entry{
		{ID: id.NewAuditLogID(), UserID: "u1", Action: "role_created", Resource: "roles", Success: true, CreatedAt: base},
		{ID: id.NewAuditLogID(), UserID: "u1", Action: "permission_check", Resource: "content", Success: false, CreatedAt: base.Add(time.Minute)},
		{ID: id.NewAuditLogID(), UserID: "u2", Action: "permission_check", Resource: "content", Success: true, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	// Newest first.
	list, _ := s.ListEntries(ctx, nil)
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if list[0].UserID != "u2" {
		t.Fatalf("expected newest entry first, got %s", list[0].Action)
	}

	// Filter by user.
	list, _ = s.ListEntries(ctx, &auditlog.QueryFilter{UserID: "u1"})
	if len(list) != 2 {
		t.Fatalf("expected 2 entries for u1, got %d", len(list))
	}

	// Filter by success.
	failed := false
	list, _ = s.ListEntries(ctx, &auditlog.QueryFilter{Success: &failed})
	if len(list) != 1 || list[0].Action != "permission_check" {
		t.Fatalf("expected 1 failed entry, got %d", len(list))
	}

	// Date bounds are inclusive.
	start := base.Add(time.Minute)
	end := base.Add(2 * time.Minute)
	list, _ = s.ListEntries(ctx, &auditlog.QueryFilter{StartDate: &start, EndDate: &end})
	if len(list) != 2 {
		t.Fatalf("expected 2 entries in window, got %d", len(list))
	}

	// Purge everything before the second entry.
	purged, _ := s.PurgeEntries(ctx, base.Add(time.Minute))
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	count, _ := s.CountEntries(ctx, nil)
	if count != 2 {
		t.Fatalf("expected 2 remaining, got %d", count)
	}
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, name := range []string{"alpha", "bravo", "charlie", "delta"} {
		_ = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), Name: name})
	}

	list, _ := s.ListRoles(ctx, &role.ListFilter{Limit: 2, Offset: 1})
	if len(list) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(list))
	}
	if list[0].Name != "bravo" || list[1].Name != "charlie" {
		t.Fatalf("unexpected page: %s, %s", list[0].Name, list[1].Name)
	}

	// Count ignores pagination.
	count, _ := s.CountRoles(ctx, &role.ListFilter{Limit: 2, Offset: 1})
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}

	// Offset past the end yields an empty page.
	list, _ = s.ListRoles(ctx, &role.ListFilter{Offset: 10})
	if len(list) != 0 {
		t.Fatalf("expected empty page, got %d", len(list))
	}
}

func TestMigratePingClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
