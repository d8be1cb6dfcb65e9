package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate bootstraps the schema. Statements are idempotent so repeated runs
// are safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const sql = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS files (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			storage_key TEXT NOT NULL UNIQUE,
			original_name TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			ext TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL,
			upload_via TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_files_owner_created
		ON files (user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS storage_usage (
			user_id UUID PRIMARY KEY,
			used_bytes BIGINT NOT NULL DEFAULT 0,
			cap_bytes BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (used_bytes >= 0)
		);

		CREATE TABLE IF NOT EXISTS api_keys (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			name TEXT NOT NULL,
			display_key TEXT NOT NULL,
			hashed_key TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_used_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_owner_created
		ON api_keys (user_id, created_at DESC);
	`

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
