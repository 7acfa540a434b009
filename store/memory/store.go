// Package memory provides an in-memory implementation of the Aegis composite
// store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory store for all Aegis entities.
// It enforces the same uniqueness constraints as the database backends:
// role names, permission (resource, action) pairs, and active
// (user, role) assignments.
type Store struct {
	mu sync.RWMutex

	roles           map[string]*role.Role
	permissions     map[string]*permission.Permission
	rolePermissions map[string]map[string]struct{} // roleID -> set of permIDs
	assignments     map[string]*assignment.Assignment
	auditEntries    map[string]*auditlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:           make(map[string]*role.Role),
		permissions:     make(map[string]*permission.Permission),
		rolePermissions: make(map[string]map[string]struct{}),
		assignments:     make(map[string]*assignment.Assignment),
		auditEntries:    make(map[string]*auditlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return fmt.Errorf("role name %q: %w", r.Name, store.ErrDuplicate)
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role name %q: %w", name, store.ErrNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	for _, existing := range s.roles {
		if existing.Name == r.Name && existing.ID.String() != r.ID.String() {
			return fmt.Errorf("role name %q: %w", r.Name, store.ErrDuplicate)
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID.String()]; !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	delete(s.roles, roleID.String())
	delete(s.rolePermissions, roleID.String())
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.IsSystem != nil && r.IsSystem != *filter.IsSystem {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	var unpaged *role.ListFilter
	if filter != nil {
		f := *filter
		f.Limit, f.Offset = 0, 0
		unpaged = &f
	}
	list, err := s.ListRoles(ctx, unpaged)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms, ok := s.rolePermissions[roleID.String()]
	if !ok {
		return nil, nil
	}
	result := make([]id.PermissionID, 0, len(perms))
	for pid := range perms {
		parsed, err := id.ParsePermissionID(pid)
		if err == nil {
			result = append(result, parsed)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].String() < result[j].String() })
	return result, nil
}

func (s *Store) AttachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	if s.rolePermissions[rk] == nil {
		s.rolePermissions[rk] = make(map[string]struct{})
	}
	s.rolePermissions[rk][permID.String()] = struct{}{}
	return nil
}

func (s *Store) DetachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perms, ok := s.rolePermissions[roleID.String()]; ok {
		delete(perms, permID.String())
	}
	return nil
}

func (s *Store) SetRolePermissions(_ context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms := make(map[string]struct{}, len(permIDs))
	for _, pid := range permIDs {
		perms[pid.String()] = struct{}{}
	}
	s.rolePermissions[roleID.String()] = perms
	return nil
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.permissions {
		if existing.Resource == p.Resource && existing.Action == p.Action {
			return fmt.Errorf("permission %s:%s: %w", p.Resource, p.Action, store.ErrDuplicate)
		}
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByName(_ context.Context, name string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.Name == name {
			return copyPermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
}

func (s *Store) GetPermissionByResourceAction(_ context.Context, resource, action string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.Resource == resource && p.Action == action {
			return copyPermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %s:%s: %w", resource, action, store.ErrNotFound)
}

func (s *Store) UpdatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[p.ID.String()]; !ok {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[permID.String()]; !ok {
		return fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	delete(s.permissions, permID.String())
	// Remove from role-permission mappings.
	pk := permID.String()
	for _, perms := range s.rolePermissions {
		delete(perms, pk)
	}
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if filter != nil {
			if filter.Resource != "" && p.Resource != filter.Resource {
				continue
			}
			if filter.Action != "" && p.Action != filter.Action {
				continue
			}
			if filter.IsSystem != nil && p.IsSystem != *filter.IsSystem {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyPermission(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Resource != result[j].Resource {
			return result[i].Resource < result[j].Resource
		}
		return result[i].Action < result[j].Action
	})
	return applyPagination(result, paginationOptsPerm(filter)), nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	var unpaged *permission.ListFilter
	if filter != nil {
		f := *filter
		f.Limit, f.Offset = 0, 0
		unpaged = &f
	}
	list, err := s.ListPermissions(ctx, unpaged)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListPermissionsByRole(_ context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms, ok := s.rolePermissions[roleID.String()]
	if !ok {
		return nil, nil
	}
	var result []*permission.Permission
	for pid := range perms {
		if p, ok := s.permissions[pid]; ok {
			result = append(result, copyPermission(p))
		}
	}
	sortPermissions(result)
	return result, nil
}

func (s *Store) ListPermissionsForUser(_ context.Context, userID string, now time.Time) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Gather role IDs from assignments active at the given instant.
	roleIDs := make(map[string]struct{})
	for _, a := range s.assignments {
		if a.UserID == userID && a.Active(now) {
			roleIDs[a.RoleID.String()] = struct{}{}
		}
	}
	// Gather permissions from those roles, deduplicated.
	seen := make(map[string]struct{})
	var result []*permission.Permission
	for rid := range roleIDs {
		if perms, ok := s.rolePermissions[rid]; ok {
			for pid := range perms {
				if _, dup := seen[pid]; dup {
					continue
				}
				seen[pid] = struct{}{}
				if p, ok := s.permissions[pid]; ok {
					result = append(result, copyPermission(p))
				}
			}
		}
	}
	sortPermissions(result)
	return result, nil
}

func (s *Store) CountRolesWithPermission(_ context.Context, permID id.PermissionID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk := permID.String()
	var count int64
	for _, perms := range s.rolePermissions {
		if _, ok := perms[pk]; ok {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountUsersWithPermission(_ context.Context, permID id.PermissionID, now time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk := permID.String()
	holders := make(map[string]struct{})
	for _, a := range s.assignments {
		if !a.Active(now) {
			continue
		}
		perms, ok := s.rolePermissions[a.RoleID.String()]
		if !ok {
			continue
		}
		if _, ok := perms[pk]; ok {
			holders[a.UserID] = struct{}{}
		}
	}
	return int64(len(holders)), nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rid := a.RoleID.String()
	for k, existing := range s.assignments {
		if existing.UserID != a.UserID || existing.RoleID.String() != rid {
			continue
		}
		if existing.Active(a.AssignedAt) {
			return fmt.Errorf("assignment %s/%s: %w", a.UserID, a.RoleID, store.ErrDuplicate)
		}
		// Expired row for the pair gives way to the new one.
		delete(s.assignments, k)
	}
	s.assignments[a.ID.String()] = copyAssignment(a)
	return nil
}

func (s *Store) GetAssignment(_ context.Context, asgnID id.AssignmentID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[asgnID.String()]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", asgnID, store.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (s *Store) DeleteAssignment(_ context.Context, userID string, roleID id.RoleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rid := roleID.String()
	removed := false
	for k, a := range s.assignments {
		if a.UserID == userID && a.RoleID.String() == rid {
			delete(s.assignments, k)
			removed = true
		}
	}
	return removed, nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil {
			if filter.UserID != "" && a.UserID != filter.UserID {
				continue
			}
			if filter.RoleID != nil && a.RoleID.String() != filter.RoleID.String() {
				continue
			}
		}
		result = append(result, copyAssignment(a))
	}
	sortAssignments(result)
	return applyPagination(result, paginationOptsAssign(filter)), nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	var unpaged *assignment.ListFilter
	if filter != nil {
		f := *filter
		f.Limit, f.Offset = 0, 0
		unpaged = &f
	}
	list, err := s.ListAssignments(ctx, unpaged)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListActiveAssignmentsForUser(_ context.Context, userID string, now time.Time) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.UserID == userID && a.Active(now) {
			result = append(result, copyAssignment(a))
		}
	}
	sortAssignments(result)
	return result, nil
}

func (s *Store) ListAssignmentsForRole(_ context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rid := roleID.String()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.RoleID.String() == rid {
			result = append(result, copyAssignment(a))
		}
	}
	sortAssignments(result)
	return result, nil
}

func (s *Store) CountAssignmentsForRole(_ context.Context, roleID id.RoleID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rid := roleID.String()
	var count int64
	for _, a := range s.assignments {
		if a.RoleID.String() == rid {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteExpiredAssignments(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, a := range s.assignments {
		if !a.Active(now) {
			delete(s.assignments, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteAssignmentsByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.assignments {
		if a.UserID == userID {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) DeleteAssignmentsByRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rid := roleID.String()
	for k, a := range s.assignments {
		if a.RoleID.String() == rid {
			delete(s.assignments, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(_ context.Context, e *auditlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEntries[e.ID.String()] = copyEntry(e)
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.AuditLogID) (*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auditEntries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, store.ErrNotFound)
	}
	return copyEntry(e), nil
}

func (s *Store) ListEntries(_ context.Context, filter *auditlog.QueryFilter) ([]*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*auditlog.Entry, 0, len(s.auditEntries))
	for _, e := range s.auditEntries {
		if filter != nil {
			if filter.UserID != "" && e.UserID != filter.UserID {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.Resource != "" && e.Resource != filter.Resource {
				continue
			}
			if filter.Success != nil && e.Success != *filter.Success {
				continue
			}
			// Date bounds are inclusive on both ends.
			if filter.StartDate != nil && e.CreatedAt.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && e.CreatedAt.After(*filter.EndDate) {
				continue
			}
		}
		result = append(result, copyEntry(e))
	}
	// Newest first. IDs are K-sortable, so they break creation-time ties.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return applyPagination(result, paginationOptsAudit(filter)), nil
}

func (s *Store) CountEntries(ctx context.Context, filter *auditlog.QueryFilter) (int64, error) {
	var unpaged *auditlog.QueryFilter
	if filter != nil {
		f := *filter
		f.Limit, f.Offset = 0, 0
		unpaged = &f
	}
	list, err := s.ListEntries(ctx, unpaged)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.auditEntries {
		if e.CreatedAt.Before(before) {
			delete(s.auditEntries, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyRole(r *role.Role) *role.Role {
	c := *r
	return &c
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	if a.ExpiresAt != nil {
		exp := *a.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

func copyEntry(e *auditlog.Entry) *auditlog.Entry {
	c := *e
	if e.Details != nil {
		c.Details = maps.Clone(e.Details)
	}
	return &c
}

func sortPermissions(perms []*permission.Permission) {
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Resource != perms[j].Resource {
			return perms[i].Resource < perms[j].Resource
		}
		return perms[i].Action < perms[j].Action
	})
}

func sortAssignments(asgns []*assignment.Assignment) {
	sort.Slice(asgns, func(i, j int) bool {
		if !asgns[i].AssignedAt.Equal(asgns[j].AssignedAt) {
			return asgns[i].AssignedAt.Before(asgns[j].AssignedAt)
		}
		return asgns[i].ID.String() < asgns[j].ID.String()
	})
}

// Pagination helpers for each entity type.
type pagOpts struct{ limit, offset int }

func paginationOpts(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset > 0 && p.offset >= len(items) {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}

func paginationOptsPerm(f *permission.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAssign(f *assignment.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAudit(f *auditlog.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}
