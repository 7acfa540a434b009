package aegis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/cache"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/store/memory"
)

func newTestEngine(t *testing.T, opts ...aegis.Option) (*aegis.Engine, *memory.Store) {
	t.Helper()
	st := memory.New()
	eng, err := aegis.NewEngine(append([]aegis.Option{aegis.WithStore(st)}, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng, st
}

// seedGrant creates a permission, a role carrying it, and an active
// assignment for userID. Returns the role ID.
func seedGrant(t *testing.T, eng *aegis.Engine, userID, resource, action string) id.RoleID {
	t.Helper()
	ctx := context.Background()
	p, err := eng.CreatePermission(ctx, resource, action, "")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	r, err := eng.CreateRole(ctx, resource+"-"+action+"-grant", "", []id.PermissionID{p.ID})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if _, err := eng.AssignRole(ctx, userID, r.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	return r.ID
}

func countAudit(t *testing.T, eng *aegis.Engine, filter *auditlog.QueryFilter) int64 {
	t.Helper()
	n, err := eng.CountAuditLogs(context.Background(), filter)
	if err != nil {
		t.Fatalf("CountAuditLogs failed: %v", err)
	}
	return n
}

// ──────────────────────────────────────────────────
// Checks
// ──────────────────────────────────────────────────

func TestNewEngineRequiresStore(t *testing.T) {
	if _, err := aegis.NewEngine(); err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestSuperuserBypassesStore(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	// Nothing is seeded; only the base role makes this pass.
	allowed, err := eng.UserHasPermission(ctx, "u1", "admin", "content", "publish")
	if err != nil {
		t.Fatalf("UserHasPermission failed: %v", err)
	}
	if !allowed {
		t.Fatal("superuser base role should be allowed")
	}

	allowed, err = eng.UserHasPermission(ctx, "u1", "editor", "content", "publish")
	if err != nil {
		t.Fatalf("UserHasPermission failed: %v", err)
	}
	if allowed {
		t.Fatal("non-superuser with no assignments should be denied")
	}
}

func TestSuperuserRoleConfigurable(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, aegis.WithConfig(aegis.Config{SuperuserRole: "root"}))

	allowed, err := eng.UserHasPermission(ctx, "u1", "root", "system", "manage")
	if err != nil {
		t.Fatalf("UserHasPermission failed: %v", err)
	}
	if !allowed {
		t.Fatal("configured superuser role should be allowed")
	}

	allowed, _ = eng.UserHasPermission(ctx, "u1", "admin", "system", "manage")
	if allowed {
		t.Fatal("default superuser name should not bypass when overridden")
	}
}

func TestGrantThroughRoleAssignment(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	seedGrant(t, eng, "u1", "content", "read")

	allowed, err := eng.UserHasPermission(ctx, "u1", "user", "content", "read")
	if err != nil {
		t.Fatalf("UserHasPermission failed: %v", err)
	}
	if !allowed {
		t.Fatal("assigned role should grant the permission")
	}

	// Another user holds nothing.
	allowed, _ = eng.UserHasPermission(ctx, "u2", "user", "content", "read")
	if allowed {
		t.Fatal("unassigned user should be denied")
	}
}

func TestExactMatchingNoWildcards(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	seedGrant(t, eng, "u1", "content", "read")

	denied := [][2]string{
		{"content", "update"},
		{"content", "rea"},
		{"conten", "read"},
		{"content", "*"},
		{"*", "read"},
		{"media", "read"},
	}
	for _, pair := range denied {
		allowed, err := eng.UserHasPermission(ctx, "u1", "user", pair[0], pair[1])
		if err != nil {
			t.Fatalf("UserHasPermission(%s, %s) failed: %v", pair[0], pair[1], err)
		}
		if allowed {
			t.Errorf("expected %s:%s to be denied", pair[0], pair[1])
		}
	}
}

func TestExpiredAssignmentDenied(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	p, err := eng.CreatePermission(ctx, "content", "publish", "")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	r, err := eng.CreateRole(ctx, "publisher", "", []id.PermissionID{p.ID})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	expired := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     "u1",
		RoleID:     r.ID,
		AssignedAt: past.Add(-time.Hour),
		ExpiresAt:  &past,
	}
	if err := st.CreateAssignment(ctx, expired); err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}

	allowed, err := eng.UserHasPermission(ctx, "u1", "user", "content", "publish")
	if err != nil {
		t.Fatalf("UserHasPermission failed: %v", err)
	}
	if allowed {
		t.Fatal("expired assignment should not grant anything")
	}

	// A future expiry still counts.
	future := time.Now().UTC().Add(time.Hour)
	if _, err := eng.AssignRole(ctx, "u2", r.ID, &future); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	allowed, _ = eng.UserHasPermission(ctx, "u2", "user", "content", "publish")
	if !allowed {
		t.Fatal("assignment with future expiry should grant")
	}
}

func TestStoreErrorFailsClosed(t *testing.T) {
	ctx := context.Background()
	st := &permFailStore{Store: memory.New(), err: errors.New("connection reset")}
	eng, err := aegis.NewEngine(aegis.WithStore(st))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	allowed, err := eng.UserHasPermission(ctx, "u1", "user", "content", "read")
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
	if allowed {
		t.Fatal("store failure must deny")
	}

	// CheckPermission records the failure as a denial before returning it.
	allowed, err = eng.CheckPermission(ctx, "u1", "user", "content", "read")
	if err == nil || allowed {
		t.Fatal("expected audited check to fail closed")
	}
	success := false
	n := countAudit(t, eng, &auditlog.QueryFilter{
		Action: aegis.AccessDeniedAction("content", "read"), Success: &success,
	})
	if n != 1 {
		t.Fatalf("expected 1 failure audit entry, got %d", n)
	}
}

// permFailStore fails permission resolution but persists everything else.
type permFailStore struct {
	store.Store
	err error
}

func (s *permFailStore) ListPermissionsForUser(_ context.Context, _ string, _ time.Time) ([]*permission.Permission, error) {
	return nil, s.err
}

// ──────────────────────────────────────────────────
// Audited checks
// ──────────────────────────────────────────────────

func TestCheckPermissionWritesAudit(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	seedGrant(t, eng, "u1", "content", "read")

	before := countAudit(t, eng, nil)

	allowed, err := eng.CheckPermission(ctx, "u1", "user", "content", "read")
	if err != nil || !allowed {
		t.Fatalf("CheckPermission = (%v, %v), want allowed", allowed, err)
	}
	allowed, err = eng.CheckPermission(ctx, "u1", "user", "content", "delete")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if allowed {
		t.Fatal("expected denial")
	}

	// Every call adds exactly one entry, denials included.
	after := countAudit(t, eng, nil)
	if after != before+2 {
		t.Fatalf("expected %d audit entries, got %d", before+2, after)
	}

	granted, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Action: aegis.AccessGrantedAction("content", "read")})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(granted) != 1 || !granted[0].Success {
		t.Fatalf("expected one successful grant entry, got %+v", granted)
	}

	deniedEntries, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Action: aegis.AccessDeniedAction("content", "delete")})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(deniedEntries) != 1 || deniedEntries[0].Success {
		t.Fatalf("expected one failed denial entry, got %+v", deniedEntries)
	}
}

func TestCheckPermissionRecordsRequestMeta(t *testing.T) {
	ctx := aegis.WithRequestMeta(context.Background(), aegis.RequestMeta{
		IPAddress: "198.51.100.4",
		UserAgent: "cms/2.1",
	})
	eng, _ := newTestEngine(t)

	if _, err := eng.CheckPermission(ctx, "u1", "user", "media", "upload"); err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}

	entries, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].IPAddress != "198.51.100.4" || entries[0].UserAgent != "cms/2.1" {
		t.Fatalf("request meta not recorded: %+v", entries[0])
	}
}

func TestCheckAdminAccess(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if !eng.CheckAdminAccess(ctx, "u1", "admin", "settings") {
		t.Fatal("admin should enter admin sections")
	}
	if eng.CheckAdminAccess(ctx, "u2", "user", "settings") {
		t.Fatal("non-admin should be rejected")
	}

	entries, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Action: aegis.AdminAccessAction("settings")})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 admin access entries, got %d", len(entries))
	}
	// Newest first: the rejected visit is entries[0].
	if entries[0].Success || !entries[1].Success {
		t.Fatalf("expected [denied, granted], got [%v, %v]", entries[0].Success, entries[1].Success)
	}
}

func TestAnonymousUserRecorded(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if _, err := eng.CheckPermission(ctx, "", "", "content", "read"); err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}

	entries, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{UserID: aegis.AnonymousUser})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected anonymous entry, got %d", len(entries))
	}
	if entries[0].Success {
		t.Fatal("anonymous check should be denied")
	}
}

// ──────────────────────────────────────────────────
// Role management
// ──────────────────────────────────────────────────

func TestCreateRoleDuplicateName(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if _, err := eng.CreateRole(ctx, "editor", "", nil); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	_, err := eng.CreateRole(ctx, "editor", "", nil)
	if !errors.Is(err, aegis.ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}

	// The failed attempt is still audited.
	success := false
	n := countAudit(t, eng, &auditlog.QueryFilter{Action: aegis.ActionRoleCreated, Success: &success})
	if n != 1 {
		t.Fatalf("expected 1 failed role_created entry, got %d", n)
	}
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	p1, _ := eng.CreatePermission(ctx, "content", "read", "")
	p2, _ := eng.CreatePermission(ctx, "content", "update", "")
	r, err := eng.CreateRole(ctx, "editor", "Editing staff", []id.PermissionID{p1.ID})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	desc := "Content editors"
	updated, err := eng.UpdateRole(ctx, r.ID, aegis.RolePatch{
		Description: &desc,
		Permissions: []id.PermissionID{p1.ID, p2.ID},
	})
	if err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("description not updated: %q", updated.Description)
	}

	perms, err := eng.ListRolePermissions(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions failed: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}

	n := countAudit(t, eng, &auditlog.QueryFilter{Action: aegis.ActionRoleUpdated})
	if n != 1 {
		t.Fatalf("expected 1 role_updated entry, got %d", n)
	}
}

func TestUpdateRolePermissionsChangeChecks(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	p1, _ := eng.CreatePermission(ctx, "content", "read", "")
	p2, _ := eng.CreatePermission(ctx, "content", "publish", "")
	r, err := eng.CreateRole(ctx, "editor", "", []id.PermissionID{p1.ID})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if _, err := eng.AssignRole(ctx, "u1", r.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	allowed, _ := eng.UserHasPermission(ctx, "u1", "user", "content", "publish")
	if allowed {
		t.Fatal("publish should be denied before role update")
	}

	if _, err := eng.UpdateRole(ctx, r.ID, aegis.RolePatch{Permissions: []id.PermissionID{p1.ID, p2.ID}}); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}

	allowed, _ = eng.UserHasPermission(ctx, "u1", "user", "content", "publish")
	if !allowed {
		t.Fatal("publish should be granted after role update")
	}
}

func TestUpdateRoleDuplicateNameAudited(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if _, err := eng.CreateRole(ctx, "editor", "", nil); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	viewer, err := eng.CreateRole(ctx, "viewer", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	before := countAudit(t, eng, nil)

	taken := "editor"
	if _, err := eng.UpdateRole(ctx, viewer.ID, aegis.RolePatch{Name: &taken}); !errors.Is(err, aegis.ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}

	// The rejected rename still leaves a failed-attempt entry.
	after := countAudit(t, eng, nil)
	if after != before+1 {
		t.Fatalf("expected audit count %d, got %d", before+1, after)
	}
	success := false
	entries, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Action: aegis.ActionRoleUpdated, Success: &success})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 failed role_updated entry, got %d", len(entries))
	}
}

func TestSystemRoleImmutable(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	if err := eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	adminRole, err := eng.GetRoleByName(ctx, aegis.RoleAdmin)
	if err != nil {
		t.Fatalf("GetRoleByName failed: %v", err)
	}

	newName := "superadmin"
	if _, err := eng.UpdateRole(ctx, adminRole.ID, aegis.RolePatch{Name: &newName}); !errors.Is(err, aegis.ErrSystemRoleImmutable) {
		t.Fatalf("expected ErrSystemRoleImmutable on rename, got %v", err)
	}

	if err := eng.DeleteRole(ctx, adminRole.ID); !errors.Is(err, aegis.ErrSystemRoleImmutable) {
		t.Fatalf("expected ErrSystemRoleImmutable on delete, got %v", err)
	}

	// The permission set of a system role is locked too.
	before, err := eng.ListRolePermissions(ctx, adminRole.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions failed: %v", err)
	}
	if _, err := eng.UpdateRole(ctx, adminRole.ID, aegis.RolePatch{Permissions: []id.PermissionID{}}); !errors.Is(err, aegis.ErrSystemRoleImmutable) {
		t.Fatalf("expected ErrSystemRoleImmutable on permission change, got %v", err)
	}
	after, err := eng.ListRolePermissions(ctx, adminRole.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions failed: %v", err)
	}
	if len(after) != len(before) || len(after) == 0 {
		t.Fatalf("expected admin permissions unchanged (%d), got %d", len(before), len(after))
	}

	// Description updates are allowed on system roles.
	desc := "Administrators"
	if _, err := eng.UpdateRole(ctx, adminRole.ID, aegis.RolePatch{Description: &desc}); err != nil {
		t.Fatalf("UpdateRole description failed: %v", err)
	}
}

func TestDeleteRoleInUse(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if _, err := eng.AssignRole(ctx, "u1", r.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	if err := eng.DeleteRole(ctx, r.ID); !errors.Is(err, aegis.ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}

	if _, err := eng.RemoveRole(ctx, "u1", r.ID); err != nil {
		t.Fatalf("RemoveRole failed: %v", err)
	}
	if err := eng.DeleteRole(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRole after removal failed: %v", err)
	}

	if _, err := eng.GetRole(ctx, r.ID); !errors.Is(err, aegis.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Permission management
// ──────────────────────────────────────────────────

func TestCreatePermissionDuplicate(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	p, err := eng.CreatePermission(ctx, "content", "read", "")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	if p.Name != "content:read" {
		t.Fatalf("expected derived name content:read, got %q", p.Name)
	}
	_, err = eng.CreatePermission(ctx, "content", "read", "again")
	if !errors.Is(err, aegis.ErrDuplicatePermission) {
		t.Fatalf("expected ErrDuplicatePermission, got %v", err)
	}
}

func TestDeletePermissionInUse(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	p, err := eng.CreatePermission(ctx, "media", "upload", "")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	r, err := eng.CreateRole(ctx, "uploader", "", []id.PermissionID{p.ID})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	if err := eng.DeletePermission(ctx, p.ID); !errors.Is(err, aegis.ErrPermissionInUse) {
		t.Fatalf("expected ErrPermissionInUse, got %v", err)
	}

	if _, err := eng.UpdateRole(ctx, r.ID, aegis.RolePatch{Permissions: []id.PermissionID{}}); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if err := eng.DeletePermission(ctx, p.ID); err != nil {
		t.Fatalf("DeletePermission after detach failed: %v", err)
	}
}

func TestPermissionUsage(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	p, err := eng.CreatePermission(ctx, "content", "read", "")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	r1, _ := eng.CreateRole(ctx, "viewer", "", []id.PermissionID{p.ID})
	r2, _ := eng.CreateRole(ctx, "editor", "", []id.PermissionID{p.ID})
	if _, err := eng.AssignRole(ctx, "u1", r1.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if _, err := eng.AssignRole(ctx, "u2", r2.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if _, err := eng.AssignRole(ctx, "u1", r2.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	usage, err := eng.GetPermissionUsage(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPermissionUsage failed: %v", err)
	}
	if usage.Roles != 2 {
		t.Errorf("expected 2 roles, got %d", usage.Roles)
	}
	if usage.Users != 2 {
		t.Errorf("expected 2 distinct users, got %d", usage.Users)
	}
}

// ──────────────────────────────────────────────────
// Assignments
// ──────────────────────────────────────────────────

func TestAssignRoleDuplicate(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	if _, err := eng.AssignRole(ctx, "u1", r.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	_, err = eng.AssignRole(ctx, "u1", r.ID, nil)
	if !errors.Is(err, aegis.ErrDuplicateAssignment) {
		t.Fatalf("expected ErrDuplicateAssignment, got %v", err)
	}

	// The same role for another user is fine.
	if _, err := eng.AssignRole(ctx, "u2", r.ID, nil); err != nil {
		t.Fatalf("AssignRole for second user failed: %v", err)
	}
}

func TestAssignRoleReplacesExpired(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	expired := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     "u1",
		RoleID:     r.ID,
		AssignedAt: past.Add(-time.Hour),
		ExpiresAt:  &past,
	}
	if err := st.CreateAssignment(ctx, expired); err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}

	// Re-granting after expiry succeeds and leaves one assignment.
	if _, err := eng.AssignRole(ctx, "u1", r.ID, nil); err != nil {
		t.Fatalf("AssignRole over expired failed: %v", err)
	}
	asgns, err := eng.ListRoleAssignments(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListRoleAssignments failed: %v", err)
	}
	if len(asgns) != 1 {
		t.Fatalf("expected 1 assignment after replacement, got %d", len(asgns))
	}
	if asgns[0].ExpiresAt != nil {
		t.Fatal("replacement assignment should not carry the old expiry")
	}
}

func TestAssignRoleUnknownRole(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.AssignRole(ctx, "u1", id.NewRoleID(), nil)
	if !errors.Is(err, aegis.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestAssignRoleRecordsActor(t *testing.T) {
	ctx := aegis.WithActor(context.Background(), aegis.Actor{ID: "admin-7", Role: "admin"})
	eng, _ := newTestEngine(t)

	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	a, err := eng.AssignRole(ctx, "u1", r.ID, nil)
	if err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if a.AssignedBy != "admin-7" {
		t.Fatalf("expected AssignedBy admin-7, got %q", a.AssignedBy)
	}
}

func TestRemoveRole(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if _, err := eng.AssignRole(ctx, "u1", r.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	removed, err := eng.RemoveRole(ctx, "u1", r.ID)
	if err != nil {
		t.Fatalf("RemoveRole failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}

	// Removing again is not an error, just false.
	removed, err = eng.RemoveRole(ctx, "u1", r.ID)
	if err != nil {
		t.Fatalf("second RemoveRole failed: %v", err)
	}
	if removed {
		t.Fatal("expected second removal to report false")
	}

	// Both attempts are audited with matching success flags.
	success := true
	if n := countAudit(t, eng, &auditlog.QueryFilter{Action: aegis.ActionRoleRemoved, Success: &success}); n != 1 {
		t.Fatalf("expected 1 successful role_removed entry, got %d", n)
	}
	success = false
	if n := countAudit(t, eng, &auditlog.QueryFilter{Action: aegis.ActionRoleRemoved, Success: &success}); n != 1 {
		t.Fatalf("expected 1 no-op role_removed entry, got %d", n)
	}
}

func TestListUserRoles(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	r1, _ := eng.CreateRole(ctx, "viewer", "", nil)
	r2, _ := eng.CreateRole(ctx, "editor", "", nil)
	if _, err := eng.AssignRole(ctx, "u1", r1.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	expired := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		UserID:     "u1",
		RoleID:     r2.ID,
		AssignedAt: past.Add(-time.Hour),
		ExpiresAt:  &past,
	}
	if err := eng.Store().CreateAssignment(ctx, expired); err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}

	roles, err := eng.ListUserRoles(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUserRoles failed: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != "viewer" {
		t.Fatalf("expected only the active viewer role, got %+v", roles)
	}
}

func TestPurgeExpiredAssignments(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	for _, uid := range []string{"u1", "u2"} {
		a := &assignment.Assignment{
			ID:         id.NewAssignmentID(),
			UserID:     uid,
			RoleID:     r.ID,
			AssignedAt: past.Add(-time.Hour),
			ExpiresAt:  &past,
		}
		if err := st.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment failed: %v", err)
		}
	}
	if _, err := eng.AssignRole(ctx, "u3", r.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	purged, err := eng.PurgeExpiredAssignments(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredAssignments failed: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged, got %d", purged)
	}
	remaining, _ := eng.ListRoleAssignments(ctx, r.ID)
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining assignment, got %d", len(remaining))
	}
}

// ──────────────────────────────────────────────────
// Bootstrap
// ──────────────────────────────────────────────────

func TestInitializeGrantsPreexistingPermissions(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	// Host-registered permissions created before bootstrap end up on
	// the admin role alongside the default catalog.
	custom, err := eng.CreatePermission(ctx, "billing", "refund", "Issue refunds")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	if err := eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	adminRole, err := eng.GetRoleByName(ctx, aegis.RoleAdmin)
	if err != nil {
		t.Fatalf("GetRoleByName failed: %v", err)
	}
	perms, err := eng.ListRolePermissions(ctx, adminRole.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions failed: %v", err)
	}
	found := false
	for _, p := range perms {
		if p.ID == custom.ID {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected admin role to carry the pre-existing permission")
	}

	total, _ := eng.CountPermissions(ctx, nil)
	if int64(len(perms)) != total {
		t.Fatalf("expected admin to hold all %d permissions, got %d", total, len(perms))
	}
}

func TestInitializeIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if err := eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	permsAfterFirst, err := eng.CountPermissions(ctx, nil)
	if err != nil {
		t.Fatalf("CountPermissions failed: %v", err)
	}
	if permsAfterFirst == 0 {
		t.Fatal("expected default permissions to be seeded")
	}

	if err := eng.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	permsAfterSecond, _ := eng.CountPermissions(ctx, nil)
	if permsAfterSecond != permsAfterFirst {
		t.Fatalf("permission count changed across runs: %d != %d", permsAfterSecond, permsAfterFirst)
	}

	rolesCount, err := eng.CountRoles(ctx, nil)
	if err != nil {
		t.Fatalf("CountRoles failed: %v", err)
	}
	if rolesCount != 2 {
		t.Fatalf("expected 2 bootstrap roles, got %d", rolesCount)
	}
}

func TestInitializeRoleGrants(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	if err := eng.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	adminRole, err := eng.GetRoleByName(ctx, aegis.RoleAdmin)
	if err != nil {
		t.Fatalf("GetRoleByName(admin) failed: %v", err)
	}
	userRole, err := eng.GetRoleByName(ctx, aegis.RoleUser)
	if err != nil {
		t.Fatalf("GetRoleByName(user) failed: %v", err)
	}
	if !adminRole.IsSystem || !userRole.IsSystem {
		t.Fatal("bootstrap roles must be system roles")
	}

	total, _ := eng.CountPermissions(ctx, nil)
	adminPerms, err := eng.ListRolePermissions(ctx, adminRole.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions failed: %v", err)
	}
	if int64(len(adminPerms)) != total {
		t.Fatalf("admin role should hold all %d permissions, got %d", total, len(adminPerms))
	}

	userPerms, err := eng.ListRolePermissions(ctx, userRole.ID)
	if err != nil {
		t.Fatalf("ListRolePermissions failed: %v", err)
	}
	if len(userPerms) == 0 {
		t.Fatal("user role should hold read permissions")
	}
	for _, p := range userPerms {
		if p.Action != "read" {
			t.Errorf("user role should only hold read actions, found %s:%s", p.Resource, p.Action)
		}
	}

	// A user assigned the bootstrap "user" role can read but not write.
	if _, err := eng.AssignRole(ctx, "u1", userRole.ID, nil); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	allowed, _ := eng.UserHasPermission(ctx, "u1", "user", "content", "read")
	if !allowed {
		t.Fatal("bootstrap user role should grant content:read")
	}
	allowed, _ = eng.UserHasPermission(ctx, "u1", "user", "content", "update")
	if allowed {
		t.Fatal("bootstrap user role should not grant content:update")
	}
}

// ──────────────────────────────────────────────────
// Audit queries and action logging
// ──────────────────────────────────────────────────

func TestAuditLogFilters(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	eng.LogContentAction(ctx, "u1", "publish", "post-9", map[string]any{"title": "Hello"})
	eng.LogMediaAction(ctx, "u2", "upload", "img-1", nil)
	eng.LogAction(ctx, "u1", "login_failed", "session", "", nil, false)

	byUser, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 entries for u1, got %d", len(byUser))
	}

	byAction, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Action: "content_publish"})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(byAction) != 1 || byAction[0].ResourceID != "post-9" {
		t.Fatalf("unexpected content_publish entries: %+v", byAction)
	}

	failed := false
	byOutcome, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Success: &failed})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(byOutcome) != 1 || byOutcome[0].Action != "login_failed" {
		t.Fatalf("unexpected failure entries: %+v", byOutcome)
	}
}

func TestAuditLogDateRangeInclusive(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, uid := range []string{"u1", "u2", "u3"} {
		e := &auditlog.Entry{
			ID:        id.NewAuditLogID(),
			UserID:    uid,
			Action:    "content_read",
			Resource:  "content",
			Success:   true,
			CreatedAt: day.AddDate(0, 0, i),
		}
		if err := st.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
	}

	start := day
	end := day.AddDate(0, 0, 1)
	entries, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	// Both boundary days are included.
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in inclusive range, got %d", len(entries))
	}
	if entries[0].UserID != "u2" || entries[1].UserID != "u1" {
		t.Fatalf("expected newest first, got %s then %s", entries[0].UserID, entries[1].UserID)
	}
}

func TestAuditLogPagination(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := &auditlog.Entry{
			ID:        id.NewAuditLogID(),
			UserID:    "u1",
			Action:    "content_read",
			Resource:  "content",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
	}

	page, err := eng.GetAuditLogs(ctx, &auditlog.QueryFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("GetAuditLogs failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	// Newest first with offset 1 skips the latest entry.
	if !page[0].CreatedAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("unexpected first page entry at %v", page[0].CreatedAt)
	}

	total, err := eng.CountAuditLogs(ctx, &auditlog.QueryFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("CountAuditLogs failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("count should ignore pagination, got %d", total)
	}
}

func TestAuditWriteFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	failing := &auditFailStore{Store: memory.New()}
	captured := &captureHook{}
	eng, err := aegis.NewEngine(aegis.WithStore(failing), aegis.WithHook(captured))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	// The role is created even though its audit entry cannot be written.
	r, err := eng.CreateRole(ctx, "editor", "", nil)
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if _, err := eng.GetRole(ctx, r.ID); err != nil {
		t.Fatalf("role should exist despite audit failure: %v", err)
	}

	if len(captured.failures) == 0 {
		t.Fatal("expected AuditWriteFailed hook to fire")
	}
	if captured.failures[0].Action != aegis.ActionRoleCreated {
		t.Fatalf("unexpected failed entry: %+v", captured.failures[0])
	}
}

// auditFailStore rejects audit writes but persists everything else.
type auditFailStore struct {
	store.Store
}

func (s *auditFailStore) CreateEntry(_ context.Context, _ *auditlog.Entry) error {
	return errors.New("audit store down")
}

// captureHook records audit write failures.
type captureHook struct {
	failures []*auditlog.Entry
}

func (c *captureHook) Name() string { return "capture" }

func (c *captureHook) OnAuditWriteFailed(_ context.Context, e *auditlog.Entry, _ error) error {
	c.failures = append(c.failures, e)
	return nil
}

func TestExportAuditLogsCSV(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	eng.LogContentAction(ctx, "u1", "publish", "post-1", nil)

	var buf testBuffer
	if err := eng.ExportAuditLogsCSV(ctx, &buf, nil); err != nil {
		t.Fatalf("ExportAuditLogsCSV failed: %v", err)
	}
	if len(buf.data) == 0 {
		t.Fatal("expected CSV output")
	}
}

type testBuffer struct{ data []byte }

func (b *testBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func TestAuditDisabled(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, aegis.WithConfig(aegis.Config{DisableAudit: true}))

	if _, err := eng.CheckPermission(ctx, "u1", "user", "content", "read"); err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if n := countAudit(t, eng, nil); n != 0 {
		t.Fatalf("expected no audit entries with auditing disabled, got %d", n)
	}
}

// ──────────────────────────────────────────────────
// Decision cache
// ──────────────────────────────────────────────────

func TestCacheInvalidatedOnAssignmentChange(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, aegis.WithCache(cache.NewMemory()))

	roleID := seedGrant(t, eng, "u1", "content", "read")

	allowed, err := eng.CheckPermission(ctx, "u1", "user", "content", "read")
	if err != nil || !allowed {
		t.Fatalf("expected allow, got %v, %v", allowed, err)
	}

	// Revocation must not serve a stale cached allow.
	if _, err := eng.RemoveRole(ctx, "u1", roleID); err != nil {
		t.Fatalf("RemoveRole failed: %v", err)
	}
	allowed, err = eng.CheckPermission(ctx, "u1", "user", "content", "read")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if allowed {
		t.Fatal("expected deny after role removal")
	}
}

func TestCacheInvalidatedOnRoleMutation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, aegis.WithCache(cache.NewMemory()))

	roleID := seedGrant(t, eng, "u1", "content", "publish")

	allowed, err := eng.CheckPermission(ctx, "u1", "user", "content", "publish")
	if err != nil || !allowed {
		t.Fatalf("expected allow, got %v, %v", allowed, err)
	}

	// Emptying the role's permission set must flush cached decisions
	// for every user.
	if _, err := eng.UpdateRole(ctx, roleID, aegis.RolePatch{Permissions: []id.PermissionID{}}); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	allowed, err = eng.CheckPermission(ctx, "u1", "user", "content", "publish")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if allowed {
		t.Fatal("expected deny after permissions cleared")
	}
}
