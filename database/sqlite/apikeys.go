package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
)

// APIKeyRepo persists hashed API keys.
type APIKeyRepo struct {
	db *sql.DB
}

func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{db: db}
}

const apiKeyColumns = `id, user_id, name, hashed_key, display_key, last_used_at, created_at`

func scanAPIKey(row rowScanner) (filevault.APIKey, error) {
	var k filevault.APIKey
	var id, userID, createdAt string
	var lastUsed sql.NullString

	err := row.Scan(&id, &userID, &k.Name, &k.HashedKey, &k.DisplayKey, &lastUsed, &createdAt)
	if err != nil {
		return filevault.APIKey{}, err
	}

	if k.ID, err = uuid.Parse(id); err != nil {
		return filevault.APIKey{}, fmt.Errorf("parse id: %w", err)
	}
	if k.UserID, err = uuid.Parse(userID); err != nil {
		return filevault.APIKey{}, fmt.Errorf("parse user id: %w", err)
	}
	if k.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return filevault.APIKey{}, fmt.Errorf("parse created_at: %w", err)
	}
	if lastUsed.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastUsed.String)
		if err != nil {
			return filevault.APIKey{}, fmt.Errorf("parse last_used_at: %w", err)
		}
		k.LastUsedAt = &t
	}
	return k, nil
}

func (r *APIKeyRepo) Insert(ctx context.Context, key *filevault.APIKey) error {
	now := nowText()
	id := uuid.New()

	query := `
		INSERT INTO api_keys (id, user_id, name, hashed_key, display_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		id.String(), key.UserID.String(), key.Name, key.HashedKey, key.DisplayKey, now,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}

	key.ID = id
	key.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	return nil
}

func (r *APIKeyRepo) GetByHash(ctx context.Context, hashedKey string) (filevault.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE hashed_key = ?`, apiKeyColumns)

	k, err := scanAPIKey(r.db.QueryRowContext(ctx, query, hashedKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filevault.APIKey{}, filevault.ErrNotFound
		}
		return filevault.APIKey{}, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func (r *APIKeyRepo) ListPage(ctx context.Context, userID uuid.UUID, skip, limit int) ([]filevault.APIKey, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = ?`, userID.String()).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("list api keys: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM api_keys
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, apiKeyColumns)

	rows, err := r.db.QueryContext(ctx, query, userID.String(), limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make([]filevault.APIKey, 0, limit)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
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
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if affected == 0 {
		return filevault.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, nowText(), id.String())
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	if affected == 0 {
		return filevault.ErrNotFound
	}
	return nil
}
