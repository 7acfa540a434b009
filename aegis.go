// Package aegis provides role-based access control with a mandatory
// audit trail for Go applications.
//
// Aegis resolves permission checks against role assignments stored in a
// pluggable backend (memory, MongoDB, Postgres, SQLite) and records every
// decision, granted or denied, in an append-only audit log. Role and
// permission mutations are audited the same way.
//
//	eng, err := aegis.NewEngine(
//	    aegis.WithStore(memStore),
//	)
//	allowed, err := eng.CheckPermission(ctx, "user_123", "user", "content", "read")
package aegis

// Actor identifies the authenticated caller of a check or mutation.
// Role is the caller's base role from the session; when it matches the
// configured superuser role the check short-circuits to allow without
// touching the store.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// RequestMeta carries request attribution written into audit entries.
type RequestMeta struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AnonymousUser is the audit user ID recorded for unauthenticated callers.
const AnonymousUser = "anonymous"

// Well-known system role names created by Initialize.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Audit action names for mutations.
const (
	ActionRoleCreated       = "role_created"
	ActionRoleUpdated       = "role_updated"
	ActionRoleDeleted       = "role_deleted"
	ActionRoleAssigned      = "role_assigned"
	ActionRoleRemoved       = "role_removed"
	ActionPermissionCreated = "permission_created"
	ActionPermissionDeleted = "permission_deleted"
)

// AccessGrantedAction returns the audit action name for a granted check,
// e.g. "access_granted_content_read".
func AccessGrantedAction(resource, action string) string {
	return "access_granted_" + resource + "_" + action
}

// AccessDeniedAction returns the audit action name for a denied check,
// e.g. "access_denied_content_publish".
func AccessDeniedAction(resource, action string) string {
	return "access_denied_" + resource + "_" + action
}

// AdminAccessAction returns the audit action name for an admin area visit,
// e.g. "admin_access_settings".
func AdminAccessAction(section string) string {
	return "admin_access_" + section
}

// ContentAction returns the audit action name for a content lifecycle
// event, e.g. "content_publish".
func ContentAction(action string) string {
	return "content_" + action
}

// MediaAction returns the audit action name for a media lifecycle event,
// e.g. "media_upload".
func MediaAction(action string) string {
	return "media_" + action
}
