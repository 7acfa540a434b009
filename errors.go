package aegis

import "errors"

var (
	// ErrAccessDenied is returned when an authorization check fails.
	ErrAccessDenied = errors.New("aegis: access denied")

	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = errors.New("aegis: role not found")

	// ErrPermissionNotFound is returned when a permission cannot be found.
	ErrPermissionNotFound = errors.New("aegis: permission not found")

	// ErrAssignmentNotFound is returned when an assignment cannot be found.
	ErrAssignmentNotFound = errors.New("aegis: assignment not found")

	// ErrSystemRoleImmutable is returned when trying to modify or delete a system role.
	ErrSystemRoleImmutable = errors.New("aegis: system role cannot be modified")

	// ErrSystemPermissionImmutable is returned when trying to delete a system permission.
	ErrSystemPermissionImmutable = errors.New("aegis: system permission cannot be modified")

	// ErrDuplicateRole is returned when a role name is already taken.
	ErrDuplicateRole = errors.New("aegis: role name already exists")

	// ErrDuplicatePermission is returned when a (resource, action) pair already exists.
	ErrDuplicatePermission = errors.New("aegis: permission already exists")

	// ErrDuplicateAssignment is returned when a role is already assigned to a user.
	ErrDuplicateAssignment = errors.New("aegis: role already assigned to user")

	// ErrRoleInUse is returned when deleting a role that still has assignments.
	ErrRoleInUse = errors.New("aegis: role has active assignments")

	// ErrPermissionInUse is returned when deleting a permission still attached to a role.
	ErrPermissionInUse = errors.New("aegis: permission attached to roles")
)
