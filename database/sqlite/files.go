// Package sqlite implements the filevault repository interfaces using SQLite,
// for embedded and single-node deployments. UUIDs and timestamps are stored
// as text (RFC 3339) the way SQLite prefers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
)

// FileRepo persists file records in the files table.
type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

// Ping verifies database connectivity
func (r *FileRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const fileColumns = `id, user_id, storage_key, original_name, size_bytes, ext, mime_type, upload_via, created_at, updated_at`

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (filevault.FileRecord, error) {
	var f filevault.FileRecord
	var id, userID, via, createdAt, updatedAt string

	err := row.Scan(&id, &userID, &f.StorageKey, &f.OriginalName, &f.SizeBytes,
		&f.Ext, &f.MimeType, &via, &createdAt, &updatedAt)
	if err != nil {
		return filevault.FileRecord{}, err
	}

	if f.ID, err = uuid.Parse(id); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("parse id: %w", err)
	}
	if f.UserID, err = uuid.Parse(userID); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("parse user id: %w", err)
	}
	f.UploadVia = filevault.UploadSource(via)
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return f, nil
}

func (r *FileRepo) Insert(ctx context.Context, rec *filevault.FileRecord) error {
	now := nowText()
	id := uuid.New()

	query := `
		INSERT INTO files (id, user_id, storage_key, original_name, size_bytes, ext, mime_type, upload_via, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		id.String(), rec.UserID.String(), rec.StorageKey, rec.OriginalName,
		rec.SizeBytes, rec.Ext, rec.MimeType, string(rec.UploadVia), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	rec.ID = id
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	rec.UpdatedAt = rec.CreatedAt
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (filevault.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = ?`, fileColumns)

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	placeholders, args := idArgs(ids)
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id IN (%s)`, fileColumns, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get files by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	pattern := "%" + filevault.EscapeLikePattern(strings.ToLower(keyword)) + "%"

	countQuery := `
		SELECT COUNT(*) FROM files
		WHERE user_id = ? AND LOWER(original_name) LIKE ? ESCAPE '\'
	`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID.String(), pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("find page: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE user_id = ? AND LOWER(original_name) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, fileColumns)

	rows, err := r.db.QueryContext(ctx, query, userID.String(), pattern, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("find page: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

	placeholders, args := idArgs(ids)
	args = append(args, userID.String())

	query := fmt.Sprintf(`DELETE FROM files WHERE id IN (%s) AND user_id = ?`, placeholders)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete files: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete files: %w", err)
	}
	return int(affected), nil
}

func (r *FileRepo) CountByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE user_id = ?`, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

func idArgs(ids []uuid.UUID) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
