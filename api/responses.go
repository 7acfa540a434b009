package api

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed bool `json:"allowed" description:"Whether the user holds the permission"`
}

// AdminAccessResponse is the response for an admin section check.
type AdminAccessResponse struct {
	Allowed bool `json:"allowed" description:"Whether the user may enter the section"`
}

// RemoveRoleResponse reports whether the unassignment removed anything.
type RemoveRoleResponse struct {
	Removed bool `json:"removed" description:"Whether an assignment existed and was removed"`
}

// PermissionUsageResponse reports where a permission is referenced.
type PermissionUsageResponse struct {
	Roles int64 `json:"roles" description:"Roles granting the permission"`
	Users int64 `json:"users" description:"Distinct users holding the permission through a role"`
}

// BulkAssignRoleResponse reports per-user outcomes of a bulk assignment.
type BulkAssignRoleResponse struct {
	Assigned int               `json:"assigned" description:"Users newly assigned"`
	Failed   map[string]string `json:"failed,omitempty" description:"User ID to error for assignments that did not apply"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
