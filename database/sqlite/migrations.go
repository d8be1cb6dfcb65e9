package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate bootstraps the schema. Statements are idempotent so repeated runs
// are safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			storage_key TEXT NOT NULL UNIQUE,
			original_name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			ext TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL,
			upload_via TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_files_owner_created
		ON files (user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS storage_usage (
			user_id TEXT PRIMARY KEY,
			used_bytes INTEGER NOT NULL DEFAULT 0 CHECK (used_bytes >= 0),
			cap_bytes INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			display_key TEXT NOT NULL,
			hashed_key TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			last_used_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_owner_created
		ON api_keys (user_id, created_at DESC);
	`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
