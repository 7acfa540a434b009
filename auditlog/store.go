package auditlog

import (
	"context"
	"time"

	"github.com/xraph/aegis/id"
)

// Store defines persistence operations for the audit trail.
// The trail is append-only: entries are never updated and only removed
// in bulk through retention purges.
type Store interface {
	// CreateEntry persists a new audit entry.
	CreateEntry(ctx context.Context, e *Entry) error

	// GetEntry retrieves an audit entry by ID.
	GetEntry(ctx context.Context, entryID id.AuditLogID) (*Entry, error)

	// ListEntries returns entries matching the filter, newest first.
	ListEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountEntries returns the number of entries matching the filter.
	CountEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeEntries removes entries created before the given time.
	// Returns the number of rows removed.
	PurgeEntries(ctx context.Context, before time.Time) (int64, error)
}
