package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the aegis store (SQLite).
var Migrations = migrate.NewGroup("aegis")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS aegis_roles (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    is_system       INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,

    UNIQUE(name)
);

CREATE INDEX IF NOT EXISTS idx_aegis_roles_system ON aegis_roles (is_system);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS aegis_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS aegis_permissions (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    resource        TEXT NOT NULL,
    action          TEXT NOT NULL,
    is_system       INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,

    UNIQUE(resource, action)
);

CREATE INDEX IF NOT EXISTS idx_aegis_permissions_name ON aegis_permissions (name);
CREATE INDEX IF NOT EXISTS idx_aegis_permissions_system ON aegis_permissions (is_system);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS aegis_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_permissions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS aegis_role_permissions (
    role_id         TEXT NOT NULL REFERENCES aegis_roles(id) ON DELETE CASCADE,
    permission_id   TEXT NOT NULL REFERENCES aegis_permissions(id) ON DELETE CASCADE,

    PRIMARY KEY (role_id, permission_id)
);

CREATE INDEX IF NOT EXISTS idx_aegis_role_permissions_role ON aegis_role_permissions (role_id);
CREATE INDEX IF NOT EXISTS idx_aegis_role_permissions_permission ON aegis_role_permissions (permission_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS aegis_role_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS aegis_assignments (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    role_id         TEXT NOT NULL REFERENCES aegis_roles(id) ON DELETE CASCADE,
    assigned_by     TEXT NOT NULL DEFAULT '',
    assigned_at     TEXT NOT NULL,
    expires_at      TEXT,

    UNIQUE(user_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_aegis_assignments_user ON aegis_assignments (user_id);
CREATE INDEX IF NOT EXISTS idx_aegis_assignments_role ON aegis_assignments (role_id);
CREATE INDEX IF NOT EXISTS idx_aegis_assignments_expires ON aegis_assignments (expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS aegis_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_logs",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS aegis_audit_logs (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    action          TEXT NOT NULL,
    resource        TEXT NOT NULL,
    resource_id     TEXT NOT NULL DEFAULT '',
    details         TEXT NOT NULL DEFAULT '{}',
    success         INTEGER NOT NULL DEFAULT 0,
    ip_address      TEXT NOT NULL DEFAULT '',
    user_agent      TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_aegis_audit_logs_user ON aegis_audit_logs (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_aegis_audit_logs_action ON aegis_audit_logs (action);
CREATE INDEX IF NOT EXISTS idx_aegis_audit_logs_resource ON aegis_audit_logs (resource);
CREATE INDEX IF NOT EXISTS idx_aegis_audit_logs_success ON aegis_audit_logs (success);
CREATE INDEX IF NOT EXISTS idx_aegis_audit_logs_created ON aegis_audit_logs (created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS aegis_audit_logs`)
				return err
			},
		},
	)
}
