package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/filevault"
)

// APIKeyRepo persists API keys in the api_keys table.
type APIKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

func (r *APIKeyRepo) Insert(ctx context.Context, key *filevault.APIKey) error {
	query := `
		INSERT INTO api_keys (user_id, name, display_key, hashed_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, key.UserID, key.Name, key.DisplayKey, key.HashedKey).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepo) GetByHash(ctx context.Context, hashedKey string) (filevault.APIKey, error) {
	query := `
		SELECT id, user_id, name, display_key, hashed_key, created_at, last_used_at
		FROM api_keys
		WHERE hashed_key = $1
	`

	var k filevault.APIKey
	err := r.pool.QueryRow(ctx, query, hashedKey).Scan(
		&k.ID, &k.UserID, &k.Name, &k.DisplayKey, &k.HashedKey, &k.CreatedAt, &k.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.APIKey{}, filevault.ErrNotFound
		}
		return filevault.APIKey{}, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func (r *APIKeyRepo) ListPage(ctx context.Context, userID uuid.UUID, skip, limit int) ([]filevault.APIKey, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list api keys: count: %w", err)
	}

	query := `
		SELECT id, user_id, name, display_key, hashed_key, created_at, last_used_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]filevault.APIKey, 0, limit)
	for rows.Next() {
		var k filevault.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.DisplayKey, &k.HashedKey, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, 0, fmt.Errorf("list api keys: scan: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list api keys: rows: %w", err)
	}
	return keys, total, nil
}

func (r *APIKeyRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return filevault.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return filevault.ErrNotFound
	}
	return nil
}
