package api

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for a permission check.
type CheckRequest struct {
	UserID   string `json:"user_id" description:"User identifier"`
	BaseRole string `json:"base_role,omitempty" description:"Base role carried on the user record"`
	Resource string `json:"resource" description:"Resource name"`
	Action   string `json:"action" description:"Action name"`
}

// AdminAccessRequest is the request body for an admin section check.
type AdminAccessRequest struct {
	UserID   string `json:"user_id" description:"User identifier"`
	BaseRole string `json:"base_role,omitempty" description:"Base role carried on the user record"`
	Section  string `json:"section" description:"Admin area section name"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name          string   `json:"name" description:"Role name (unique)"`
	Description   string   `json:"description,omitempty" description:"Human-readable description"`
	PermissionIDs []string `json:"permission_ids,omitempty" description:"Permission IDs granted by the role"`
}

// UpdateRoleRequest is the body for updating a role.
type UpdateRoleRequest struct {
	Name          *string  `json:"name,omitempty" description:"New role name"`
	Description   *string  `json:"description,omitempty" description:"New description"`
	PermissionIDs []string `json:"permission_ids,omitempty" description:"Replacement permission set"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Resource    string `json:"resource" description:"Resource name"`
	Action      string `json:"action" description:"Action name"`
	Description string `json:"description,omitempty" description:"Human-readable description"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Resource string `query:"resource" description:"Filter by resource"`
	Action   string `query:"action" description:"Filter by action"`
	Search   string `query:"search" description:"Search by name"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// AssignRoleRequest is the body for assigning a role to a user.
type AssignRoleRequest struct {
	UserID    string `json:"user_id" description:"User identifier"`
	RoleID    string `json:"role_id" description:"Role ID to assign"`
	ExpiresAt string `json:"expires_at,omitempty" description:"Expiration time (RFC3339, empty = permanent)"`
}

// BulkAssignRoleRequest assigns one role to many users at once.
type BulkAssignRoleRequest struct {
	UserIDs   []string `json:"user_ids" description:"User identifiers"`
	RoleID    string   `json:"role_id" description:"Role ID to assign"`
	ExpiresAt string   `json:"expires_at,omitempty" description:"Expiration time (RFC3339, empty = permanent)"`
}

// RemoveRoleRequest identifies a user/role pair to unassign.
type RemoveRoleRequest struct {
	UserID string `path:"userId" description:"User identifier"`
	RoleID string `path:"roleId" description:"Role ID"`
}

// GetUserRequest is the path parameter for user-scoped routes.
type GetUserRequest struct {
	UserID string `path:"userId" description:"User identifier"`
}

// ──────────────────────────────────────────────────
// Audit log requests
// ──────────────────────────────────────────────────

// ListAuditLogsRequest holds query parameters for querying audit logs.
type ListAuditLogsRequest struct {
	UserID    string `query:"user_id" description:"Filter by user"`
	Action    string `query:"action" description:"Filter by action"`
	Resource  string `query:"resource" description:"Filter by resource"`
	Success   string `query:"success" description:"Filter by outcome (true/false)"`
	StartDate string `query:"start_date" description:"Start of date range, inclusive (RFC3339)"`
	EndDate   string `query:"end_date" description:"End of date range, inclusive (RFC3339)"`
	Limit     int    `query:"limit" description:"Maximum results"`
	Offset    int    `query:"offset" description:"Results to skip"`
}
