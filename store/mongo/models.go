package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:aegis_roles"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	Name            string    `grove:"name"            bson:"name"`
	Description     string    `grove:"description"     bson:"description"`
	IsSystem        bool      `grove:"is_system"       bson:"is_system"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"      bson:"updated_at"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:          rid,
		Name:        m.Name,
		Description: m.Description,
		IsSystem:    m.IsSystem,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:aegis_permissions"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	Name            string    `grove:"name"            bson:"name"`
	Description     string    `grove:"description"     bson:"description"`
	Resource        string    `grove:"resource"        bson:"resource"`
	Action          string    `grove:"action"          bson:"action"`
	IsSystem        bool      `grove:"is_system"       bson:"is_system"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"      bson:"updated_at"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		IsSystem:    p.IsSystem,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:          pid,
		Name:        m.Name,
		Description: m.Description,
		Resource:    m.Resource,
		Action:      m.Action,
		IsSystem:    m.IsSystem,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role-Permission junction model
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:aegis_role_permissions"`
	RoleID          string `grove:"role_id,pk"       bson:"role_id"`
	PermissionID    string `grove:"permission_id,pk" bson:"permission_id"`
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:aegis_assignments"`
	ID              string     `grove:"id,pk"           bson:"_id"`
	UserID          string     `grove:"user_id"         bson:"user_id"`
	RoleID          string     `grove:"role_id"         bson:"role_id"`
	AssignedBy      string     `grove:"assigned_by"     bson:"assigned_by"`
	AssignedAt      time.Time  `grove:"assigned_at"     bson:"assigned_at"`
	ExpiresAt       *time.Time `grove:"expires_at"      bson:"expires_at,omitempty"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:         a.ID.String(),
		UserID:     a.UserID,
		RoleID:     a.RoleID.String(),
		AssignedBy: a.AssignedBy,
		AssignedAt: a.AssignedAt,
		ExpiresAt:  a.ExpiresAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:         aid,
		UserID:     m.UserID,
		RoleID:     rid,
		AssignedBy: m.AssignedBy,
		AssignedAt: m.AssignedAt,
		ExpiresAt:  m.ExpiresAt,
	}
}

// ──────────────────────────────────────────────────
// Audit log model
// ──────────────────────────────────────────────────

type auditLogModel struct {
	grove.BaseModel `grove:"table:aegis_audit_logs"`
	ID              string         `grove:"id,pk"           bson:"_id"`
	UserID          string         `grove:"user_id"         bson:"user_id"`
	Action          string         `grove:"action"          bson:"action"`
	Resource        string         `grove:"resource"        bson:"resource"`
	ResourceID      string         `grove:"resource_id"     bson:"resource_id"`
	Details         map[string]any `grove:"details"         bson:"details,omitempty"`
	Success         bool           `grove:"success"         bson:"success"`
	IPAddress       string         `grove:"ip_address"      bson:"ip_address"`
	UserAgent       string         `grove:"user_agent"      bson:"user_agent"`
	CreatedAt       time.Time      `grove:"created_at"      bson:"created_at"`
}

func auditLogToModel(e *auditlog.Entry) *auditLogModel {
	return &auditLogModel{
		ID:         e.ID.String(),
		UserID:     e.UserID,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Details:    e.Details,
		Success:    e.Success,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}
}

func auditLogFromModel(m *auditLogModel) *auditlog.Entry {
	eid, _ := id.ParseAuditLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &auditlog.Entry{
		ID:         eid,
		UserID:     m.UserID,
		Action:     m.Action,
		Resource:   m.Resource,
		ResourceID: m.ResourceID,
		Details:    m.Details,
		Success:    m.Success,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}
}
