// Package auditlog defines the audit trail Entry entity.
package auditlog

import (
	"time"

	"github.com/xraph/aegis/id"
)

// Entry is a single audit record. Every permission decision and every
// role or permission mutation produces one, failures included.
type Entry struct {
	ID         id.AuditLogID  `json:"id" db:"id"`
	UserID     string         `json:"user_id" db:"user_id"`
	Action     string         `json:"action" db:"action"`
	Resource   string         `json:"resource" db:"resource"`
	ResourceID string         `json:"resource_id,omitempty" db:"resource_id"`
	Details    map[string]any `json:"details,omitempty" db:"details"`
	Success    bool           `json:"success" db:"success"`
	IPAddress  string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
// StartDate and EndDate are both inclusive.
type QueryFilter struct {
	UserID    string     `json:"user_id,omitempty"`
	Action    string     `json:"action,omitempty"`
	Resource  string     `json:"resource,omitempty"`
	Success   *bool      `json:"success,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
