package database

import (
	"context"
	"fmt"
	"log"

	"entgo.io/ent/dialect"
	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id           UUID PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		title        VARCHAR(200) NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		pinned       BOOLEAN NOT NULL DEFAULT FALSE,
		priority     TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
		due_date     TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		tags         JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_tags_idx ON tasks USING GIN (tags)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		completed    BOOLEAN NOT NULL DEFAULT 0,
		pinned       BOOLEAN NOT NULL DEFAULT 0,
		priority     TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
		due_date     TIMESTAMP,
		completed_at TIMESTAMP,
		tags         TEXT NOT NULL DEFAULT '[]',
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
}

// Indexes mirror the owner-scoped access paths: listing, pinned-first views,
// completion filters and overdue counts.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS tasks_owner_created_idx ON tasks (owner_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS tasks_owner_pinned_created_idx ON tasks (owner_id, pinned DESC, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS tasks_owner_completed_created_idx ON tasks (owner_id, completed, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS tasks_owner_due_idx ON tasks (owner_id, due_date)`,
}

// Migrate creates the tasks table and its indexes if they do not exist yet.
// It is safe to run on every startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var stmts []string
	switch Dialect(db) {
	case dialect.SQLite:
		stmts = append(stmts, sqliteSchema...)
	case dialect.Postgres:
		stmts = append(stmts, postgresSchema...)
	default:
		return fmt.Errorf("migrate: unsupported driver %q", db.DriverName())
	}
	stmts = append(stmts, indexes...)

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	log.Println("[INFO] Schema is up to date")
	return nil
}
