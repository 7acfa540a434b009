package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

// Collection name constants.
const (
	colRoles           = "aegis_roles"
	colPermissions     = "aegis_permissions"
	colRolePermissions = "aegis_role_permissions"
	colAssignments     = "aegis_assignments"
	colAuditLogs       = "aegis_audit_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite aegis store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all aegis collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("aegis/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all aegis collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colRoles: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "is_system", Value: 1}}},
		},
		colPermissions: {
			{
				Keys:    bson.D{{Key: "resource", Value: 1}, {Key: "action", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "is_system", Value: 1}}},
		},
		colRolePermissions: {
			{
				Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
			{Keys: bson.D{{Key: "permission_id", Value: 1}}},
		},
		colAssignments: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "role_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "action", Value: 1}}},
			{Keys: bson.D{{Key: "resource", Value: 1}}},
			{Keys: bson.D{{Key: "success", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
		}
		return fmt.Errorf("aegis: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get role by name: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
		}
		return fmt.Errorf("aegis: update role: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: delete role: %w", err)
	}
	// Detach any leftover junction rows.
	_, err = s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: delete role permissions: %w", err)
	}
	return nil
}

func roleFilter(filter *role.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.IsSystem != nil {
		f["is_system"] = *filter.IsSystem
	}
	if filter.Search != "" {
		f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	return f
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.mdb.NewFind(&models).
		Filter(roleFilter(filter)).
		Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(roleFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list role permissions: %w", err)
	}
	result := make([]id.PermissionID, 0, len(models))
	for _, m := range models {
		pid, err := id.ParsePermissionID(m.PermissionID)
		if err == nil {
			result = append(result, pid)
		}
	}
	return result, nil
}

func (s *Store) AttachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	m := &rolePermissionModel{
		RoleID:       roleID.String(),
		PermissionID: permID.String(),
	}
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return nil // already attached
		}
		return fmt.Errorf("aegis: attach permission: %w", err)
	}
	return nil
}

func (s *Store) DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	_, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Filter(bson.M{"role_id": roleID.String(), "permission_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: detach permission: %w", err)
	}
	return nil
}

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	// Delete all existing role permissions.
	_, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: clear role permissions: %w", err)
	}

	// Insert new permissions.
	if len(permIDs) > 0 {
		models := make([]rolePermissionModel, len(permIDs))
		for i, pid := range permIDs {
			models[i] = rolePermissionModel{
				RoleID:       roleID.String(),
				PermissionID: pid.String(),
			}
		}
		if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("aegis: set role permissions: %w", err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	m := permissionToModel(p)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("permission %s:%s: %w", p.Resource, p.Action, store.ErrDuplicate)
		}
		return fmt.Errorf("aegis: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get permission: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get permission by name: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissionByResourceAction(ctx context.Context, resource, action string) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"resource": resource, "action": action}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s:%s: %w", resource, action, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get permission by resource action: %w", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	m := permissionToModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("permission %s:%s: %w", p.Resource, p.Action, store.ErrDuplicate)
		}
		return fmt.Errorf("aegis: update permission: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	_, err := s.mdb.NewDelete((*permissionModel)(nil)).
		Filter(bson.M{"_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: delete permission: %w", err)
	}
	// Detach any leftover junction rows.
	_, err = s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Many().
		Filter(bson.M{"permission_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: detach deleted permission: %w", err)
	}
	return nil
}

func permissionFilter(filter *permission.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.Resource != "" {
		f["resource"] = filter.Resource
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.IsSystem != nil {
		f["is_system"] = *filter.IsSystem
	}
	if filter.Search != "" {
		f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	return f
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.mdb.NewFind(&models).
		Filter(permissionFilter(filter)).
		Sort(bson.D{{Key: "resource", Value: 1}, {Key: "action", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list permissions: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*permissionModel)(nil)).
		Filter(permissionFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: count permissions: %w", err)
	}
	return count, nil
}

func (s *Store) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	var rpModels []rolePermissionModel
	if err := s.mdb.NewFind(&rpModels).
		Filter(bson.M{"role_id": roleID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list permissions by role: %w", err)
	}
	if len(rpModels) == 0 {
		return []*permission.Permission{}, nil
	}

	permIDs := make([]string, len(rpModels))
	for i, rp := range rpModels {
		permIDs[i] = rp.PermissionID
	}

	var models []permissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": permIDs}}).
		Sort(bson.D{{Key: "resource", Value: 1}, {Key: "action", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list permissions by role: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListPermissionsForUser(ctx context.Context, userID string, now time.Time) ([]*permission.Permission, error) {
	// Step 1: Find role IDs from the user's active assignments.
	var assignModels []assignmentModel
	if err := s.mdb.NewFind(&assignModels).
		Filter(activeAssignmentFilter(userID, now)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list permissions for user: %w", err)
	}
	if len(assignModels) == 0 {
		return []*permission.Permission{}, nil
	}

	roleIDs := make([]string, len(assignModels))
	for i, a := range assignModels {
		roleIDs[i] = a.RoleID
	}

	// Step 2: Find all permission IDs for those roles.
	var rpModels []rolePermissionModel
	if err := s.mdb.NewFind(&rpModels).
		Filter(bson.M{"role_id": bson.M{"$in": roleIDs}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list permissions for user: %w", err)
	}
	if len(rpModels) == 0 {
		return []*permission.Permission{}, nil
	}

	// Deduplicate.
	seen := make(map[string]struct{})
	permIDs := make([]string, 0, len(rpModels))
	for _, rp := range rpModels {
		if _, exists := seen[rp.PermissionID]; !exists {
			seen[rp.PermissionID] = struct{}{}
			permIDs = append(permIDs, rp.PermissionID)
		}
	}

	// Step 3: Load the permissions.
	var models []permissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": permIDs}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list permissions for user: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRolesWithPermission(ctx context.Context, permID id.PermissionID) (int64, error) {
	count, err := s.mdb.NewFind((*rolePermissionModel)(nil)).
		Filter(bson.M{"permission_id": permID.String()}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: count roles with permission: %w", err)
	}
	return count, nil
}

func (s *Store) CountUsersWithPermission(ctx context.Context, permID id.PermissionID, now time.Time) (int64, error) {
	var rpModels []rolePermissionModel
	if err := s.mdb.NewFind(&rpModels).
		Filter(bson.M{"permission_id": permID.String()}).
		Scan(ctx); err != nil {
		return 0, fmt.Errorf("aegis: count users with permission: %w", err)
	}
	if len(rpModels) == 0 {
		return 0, nil
	}

	roleIDs := make([]string, len(rpModels))
	for i, rp := range rpModels {
		roleIDs[i] = rp.RoleID
	}

	var assignModels []assignmentModel
	if err := s.mdb.NewFind(&assignModels).
		Filter(bson.M{
			"role_id": bson.M{"$in": roleIDs},
			"$or": []bson.M{
				{"expires_at": nil},
				{"expires_at": bson.M{"$gt": now}},
			},
		}).
		Scan(ctx); err != nil {
		return 0, fmt.Errorf("aegis: count users with permission: %w", err)
	}

	users := make(map[string]struct{})
	for _, a := range assignModels {
		users[a.UserID] = struct{}{}
	}
	return int64(len(users)), nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

// activeAssignmentFilter matches a user's assignments whose expiry is
// unset or strictly after the given instant.
func activeAssignmentFilter(userID string, now time.Time) bson.M {
	return bson.M{
		"user_id": userID,
		"$or": []bson.M{
			{"expires_at": nil},
			{"expires_at": bson.M{"$gt": now}},
		},
	}
}

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	// Discard any expired row for the pair so the unique index only
	// guards active assignments.
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{
			"user_id": a.UserID,
			"role_id": a.RoleID.String(),
			"expires_at": bson.M{
				"$ne":  nil,
				"$lte": a.AssignedAt,
			},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: replace expired assignment: %w", err)
	}

	m := assignmentToModel(a)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("assignment %s/%s: %w", a.UserID, a.RoleID, store.ErrDuplicate)
		}
		return fmt.Errorf("aegis: create assignment: %w", err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, asgnID id.AssignmentID) (*assignment.Assignment, error) {
	var m assignmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": asgnID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("assignment %s: %w", asgnID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get assignment: %w", err)
	}
	return assignmentFromModel(&m), nil
}

func (s *Store) DeleteAssignment(ctx context.Context, userID string, roleID id.RoleID) (bool, error) {
	res, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{"user_id": userID, "role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("aegis: delete assignment: %w", err)
	}
	return res.DeletedCount() > 0, nil
}

func assignmentFilter(filter *assignment.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.UserID != "" {
		f["user_id"] = filter.UserID
	}
	if filter.RoleID != nil {
		f["role_id"] = filter.RoleID.String()
	}
	return f
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.mdb.NewFind(&models).
		Filter(assignmentFilter(filter)).
		Sort(bson.D{{Key: "assigned_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*assignmentModel)(nil)).
		Filter(assignmentFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: count assignments: %w", err)
	}
	return count, nil
}

func (s *Store) ListActiveAssignmentsForUser(ctx context.Context, userID string, now time.Time) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	if err := s.mdb.NewFind(&models).
		Filter(activeAssignmentFilter(userID, now)).
		Sort(bson.D{{Key: "assigned_at", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list active assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListAssignmentsForRole(ctx context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Sort(bson.D{{Key: "assigned_at", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list assignments for role: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAssignmentsForRole(ctx context.Context, roleID id.RoleID) (int64, error) {
	count, err := s.mdb.NewFind((*assignmentModel)(nil)).
		Filter(bson.M{"role_id": roleID.String()}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: count assignments for role: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteExpiredAssignments(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{
			"expires_at": bson.M{
				"$ne":  nil,
				"$lte": now,
			},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: delete expired assignments: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteAssignmentsByUser(ctx context.Context, userID string) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{"user_id": userID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: delete assignments by user: %w", err)
	}
	return nil
}

func (s *Store) DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("aegis: delete assignments by role: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(ctx context.Context, e *auditlog.Entry) error {
	m := auditLogToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("aegis: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID id.AuditLogID) (*auditlog.Entry, error) {
	var m auditLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("audit entry %s: %w", entryID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("aegis: get audit entry: %w", err)
	}
	return auditLogFromModel(&m), nil
}

func auditFilter(filter *auditlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.UserID != "" {
		f["user_id"] = filter.UserID
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.Resource != "" {
		f["resource"] = filter.Resource
	}
	if filter.Success != nil {
		f["success"] = *filter.Success
	}
	if filter.StartDate != nil || filter.EndDate != nil {
		// Date bounds are inclusive on both ends.
		dateFilter := bson.M{}
		if filter.StartDate != nil {
			dateFilter["$gte"] = *filter.StartDate
		}
		if filter.EndDate != nil {
			dateFilter["$lte"] = *filter.EndDate
		}
		f["created_at"] = dateFilter
	}
	return f
}

func (s *Store) ListEntries(ctx context.Context, filter *auditlog.QueryFilter) ([]*auditlog.Entry, error) {
	var models []auditLogModel
	q := s.mdb.NewFind(&models).
		Filter(auditFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("aegis: list audit entries: %w", err)
	}
	result := make([]*auditlog.Entry, len(models))
	for i := range models {
		result[i] = auditLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountEntries(ctx context.Context, filter *auditlog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*auditLogModel)(nil)).
		Filter(auditFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*auditLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("aegis: purge audit entries: %w", err)
	}
	return res.DeletedCount(), nil
}
