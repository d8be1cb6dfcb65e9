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

// UsageRepo is the quota ledger over the storage_usage table. Admission is a
// single conditional UPDATE, so concurrent reservations for the same user
// serialize on the row and the cap can never be oversubscribed.
type UsageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *UsageRepo {
	return &UsageRepo{pool: pool}
}

func (r *UsageRepo) EnsureRow(ctx context.Context, userID uuid.UUID, capBytes int64) error {
	query := `
		INSERT INTO storage_usage (user_id, used_bytes, cap_bytes)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, userID, capBytes); err != nil {
		return fmt.Errorf("ensure usage row: %w", err)
	}
	return nil
}

func (r *UsageRepo) IncrementIfUnderCap(ctx context.Context, userID uuid.UUID, delta int64) error {
	query := `
		UPDATE storage_usage
		SET used_bytes = used_bytes + $2, updated_at = NOW()
		WHERE user_id = $1 AND used_bytes + $2 <= cap_bytes
	`

	result, err := r.pool.Exec(ctx, query, userID, delta)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return filevault.ErrQuotaExceeded
	}
	return nil
}

func (r *UsageRepo) Decrement(ctx context.Context, userID uuid.UUID, delta int64) error {
	query := `
		UPDATE storage_usage
		SET used_bytes = GREATEST(used_bytes - $2, 0), updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.pool.Exec(ctx, query, userID, delta)
	if err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("decrement usage: %w", filevault.ErrNotFound)
	}
	return nil
}

func (r *UsageRepo) Get(ctx context.Context, userID uuid.UUID) (filevault.StorageUsage, error) {
	query := `
		SELECT user_id, used_bytes, cap_bytes, updated_at
		FROM storage_usage
		WHERE user_id = $1
	`

	var u filevault.StorageUsage
	err := r.pool.QueryRow(ctx, query, userID).Scan(&u.UserID, &u.UsedBytes, &u.CapBytes, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.StorageUsage{}, filevault.ErrNotFound
		}
		return filevault.StorageUsage{}, fmt.Errorf("get usage: %w", err)
	}
	return u, nil
}
