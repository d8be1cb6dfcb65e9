// Package postgres implements the filevault repository interfaces over
// pgx/v5 connection pools.
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

// FileRepo persists file records in the files table.
type FileRepo struct {
	pool *pgxpool.Pool
}

func NewFileRepo(pool *pgxpool.Pool) *FileRepo {
	return &FileRepo{pool: pool}
}

// Ping verifies database connectivity
func (r *FileRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const fileColumns = `id, user_id, storage_key, original_name, size_bytes, ext, mime_type, upload_via, created_at, updated_at`

func scanFile(row pgx.Row) (filevault.FileRecord, error) {
	var f filevault.FileRecord
	err := row.Scan(
		&f.ID, &f.UserID, &f.StorageKey, &f.OriginalName, &f.SizeBytes,
		&f.Ext, &f.MimeType, &f.UploadVia, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

func (r *FileRepo) Insert(ctx context.Context, rec *filevault.FileRecord) error {
	query := `
		INSERT INTO files (user_id, storage_key, original_name, size_bytes, ext, mime_type, upload_via)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.UserID, rec.StorageKey, rec.OriginalName, rec.SizeBytes,
		rec.Ext, rec.MimeType, string(rec.UploadVia),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (filevault.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	f, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.FileRecord{}, filevault.ErrNotFound
		}
		return filevault.FileRecord{}, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func (r *FileRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]filevault.FileRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = ANY($1::uuid[])`, fileColumns)

	rows, err := r.pool.Query(ctx, query, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("get files by ids: %w", err)
	}
	defer rows.Close()

	var records []filevault.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("get files by ids: scan: %w", err)
		}
		records = append(records, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get files by ids: rows: %w", err)
	}
	return records, nil
}

func (r *FileRepo) FindPage(ctx context.Context, userID uuid.UUID, keyword string, skip, limit int) ([]filevault.FileRecord, int, error) {
	pattern := "%" + filevault.EscapeLikePattern(keyword) + "%"

	countQuery := `
		SELECT COUNT(*) FROM files
		WHERE user_id = $1 AND original_name ILIKE $2
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, userID, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("find page: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE user_id = $1 AND original_name ILIKE $2
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`, fileColumns)

	rows, err := r.pool.Query(ctx, query, userID, pattern, skip, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("find page: %w", err)
	}
	defer rows.Close()

	records := make([]filevault.FileRecord, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("find page: scan: %w", err)
		}
		records = append(records, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("find page: rows: %w", err)
	}
	return records, total, nil
}

func (r *FileRepo) DeleteManyOwned(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM files WHERE id = ANY($1::uuid[]) AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, idStrings(ids), userID)
	if err != nil {
		return 0, fmt.Errorf("delete files: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *FileRepo) CountByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM files WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
