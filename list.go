package filevault

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// List returns one page of the user's files, newest first, each resolved to a
// short-lived inline signed URL. The raw storage key never leaves the
// process. URL resolution fans out concurrently; the page fails as a unit
// when any presign fails, since a page with holes in it is not useful.
func (s *Service) List(ctx context.Context, userID uuid.UUID, q ListQuery) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}

	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.PageNumber <= 0 {
		q.PageNumber = 1
	}

	records, total, err := s.files.FindPage(ctx, userID, q.Keyword, q.Skip(), q.PageSize)
	if err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}

	infos := make([]FileInfo, len(records))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range records {
		g.Go(func() error {
			url, err := s.blob.PresignGet(gctx, rec.StorageKey, PresignOptions{
				TTL:         s.urlTTL,
				ContentType: rec.MimeType,
				Disposition: DispositionInline,
			})
			if err != nil {
				return fmt.Errorf("presign %s: %w", rec.ID, err)
			}
			infos[i] = FileInfo{FileRecord: rec, URL: url}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}

	totalPages := (total + q.PageSize - 1) / q.PageSize

	return ListResult{
		Files: infos,
		Pagination: Pagination{
			PageSize:   q.PageSize,
			PageNumber: q.PageNumber,
			TotalPages: totalPages,
			TotalCount: total,
			Skip:       q.Skip(),
		},
	}, nil
}

// FileURL resolves a file id to an inline signed URL. There is no owner
// filter: on the public view path possession of the unguessable id is the
// capability.
func (s *Service) FileURL(ctx context.Context, fileID uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("file url: %w", err)
	}

	rec, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("file url %s: %w", fileID, err)
	}

	url, err := s.blob.PresignGet(ctx, rec.StorageKey, PresignOptions{
		TTL:         s.urlTTL,
		ContentType: rec.MimeType,
		Disposition: DispositionInline,
	})
	if err != nil {
		return "", fmt.Errorf("file url %s: %w", fileID, err)
	}
	return url, nil
}

// OpenFile resolves a file id to its record and a live byte stream from the
// blob store, for proxying bytes straight through to a client. The caller
// closes the stream.
func (s *Service) OpenFile(ctx context.Context, fileID uuid.UUID) (FileRecord, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, nil, fmt.Errorf("open file: %w", err)
	}

	rec, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return FileRecord{}, nil, fmt.Errorf("open file %s: %w", fileID, err)
	}

	rc, err := s.blob.GetStream(ctx, rec.StorageKey)
	if err != nil {
		return FileRecord{}, nil, fmt.Errorf("open file %s: %w", fileID, err)
	}
	return rec, rc, nil
}
