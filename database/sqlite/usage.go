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

// UsageRepo tracks per-user storage consumption.
type UsageRepo struct {
	db *sql.DB
}

func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

func (r *UsageRepo) EnsureRow(ctx context.Context, userID uuid.UUID, capBytes int64) error {
	query := `
		INSERT INTO storage_usage (user_id, used_bytes, cap_bytes, updated_at)
		VALUES (?, 0, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID.String(), capBytes, nowText()); err != nil {
		return fmt.Errorf("ensure usage row: %w", err)
	}
	return nil
}

// IncrementIfUnderCap reserves size bytes atomically. The conditional update
// never lets used_bytes exceed cap_bytes, even under concurrent uploads.
func (r *UsageRepo) IncrementIfUnderCap(ctx context.Context, userID uuid.UUID, size int64) error {
	query := `
		UPDATE storage_usage
		SET used_bytes = used_bytes + ?, updated_at = ?
		WHERE user_id = ? AND used_bytes + ? <= cap_bytes
	`
	result, err := r.db.ExecContext(ctx, query, size, nowText(), userID.String(), size)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if affected == 0 {
		return filevault.ErrQuotaExceeded
	}
	return nil
}

func (r *UsageRepo) Decrement(ctx context.Context, userID uuid.UUID, size int64) error {
	query := `
		UPDATE storage_usage
		SET used_bytes = MAX(used_bytes - ?, 0), updated_at = ?
		WHERE user_id = ?
	`
	result, err := r.db.ExecContext(ctx, query, size, nowText(), userID.String())
	if err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}
	if affected == 0 {
		return filevault.ErrNotFound
	}
	return nil
}

func (r *UsageRepo) Get(ctx context.Context, userID uuid.UUID) (filevault.StorageUsage, error) {
	query := `SELECT user_id, used_bytes, cap_bytes, updated_at FROM storage_usage WHERE user_id = ?`

	var u filevault.StorageUsage
	var id, updatedAt string
	err := r.db.QueryRowContext(ctx, query, userID.String()).Scan(&id, &u.UsedBytes, &u.CapBytes, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filevault.StorageUsage{}, filevault.ErrNotFound
		}
		return filevault.StorageUsage{}, fmt.Errorf("get usage: %w", err)
	}
	if u.UserID, err = uuid.Parse(id); err != nil {
		return filevault.StorageUsage{}, fmt.Errorf("get usage: parse user id: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return filevault.StorageUsage{}, fmt.Errorf("get usage: parse updated_at: %w", err)
	}
	return u, nil
}
