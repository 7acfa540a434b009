// Package store defines the aggregate persistence interface. Each subsystem
// (role, permission, assignment, auditlog) defines its own store interface.
// The composite Store composes them all.
// Backends: Memory, MongoDB, Postgres, and SQLite.
package store

import (
	"context"
	"errors"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
)

// Sentinel errors shared by all backends. Callers match them with errors.Is.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint: role name, permission (resource, action), or an active
	// (user, role) assignment.
	ErrDuplicate = errors.New("store: duplicate")
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (memory, mongo, postgres, sqlite) implements all of them.
type Store interface {
	role.Store
	permission.Store
	assignment.Store
	auditlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
