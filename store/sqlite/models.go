package sqlite

import (
	"encoding/json"
	"fmt"
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
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	IsSystem        bool      `grove:"is_system,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
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
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	Resource        string    `grove:"resource,notnull"`
	Action          string    `grove:"action,notnull"`
	IsSystem        bool      `grove:"is_system,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
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
// Role-permission junction model
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:aegis_role_permissions"`
	RoleID          string `grove:"role_id,pk"`
	PermissionID    string `grove:"permission_id,pk"`
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:aegis_assignments"`
	ID              string     `grove:"id,pk"`
	UserID          string     `grove:"user_id,notnull"`
	RoleID          string     `grove:"role_id,notnull"`
	AssignedBy      string     `grove:"assigned_by"`
	AssignedAt      time.Time  `grove:"assigned_at,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
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
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	Action          string    `grove:"action,notnull"`
	Resource        string    `grove:"resource,notnull"`
	ResourceID      string    `grove:"resource_id"`
	Details         string    `grove:"details"` // JSON text
	Success         bool      `grove:"success,notnull"`
	IPAddress       string    `grove:"ip_address"`
	UserAgent       string    `grove:"user_agent"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditLogToModel(e *auditlog.Entry) (*auditLogModel, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return &auditLogModel{
		ID:         e.ID.String(),
		UserID:     e.UserID,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Details:    string(details),
		Success:    e.Success,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func auditLogFromModel(m *auditLogModel) (*auditlog.Entry, error) {
	lid, _ := id.ParseAuditLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	var details map[string]any
	if m.Details != "" && m.Details != "null" {
		if err := json.Unmarshal([]byte(m.Details), &details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
	}
	return &auditlog.Entry{
		ID:         lid,
		UserID:     m.UserID,
		Action:     m.Action,
		Resource:   m.Resource,
		ResourceID: m.ResourceID,
		Details:    details,
		Success:    m.Success,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}, nil
}
