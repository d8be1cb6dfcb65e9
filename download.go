package filevault

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// Download issues a signed URL for the requested files. A single resolved id
// short-circuits to a direct attachment URL; two or more are streamed through
// a zip encoder into a temporary blob and the URL points at that archive.
//
// Unlike upload and delete, archiving is all-or-nothing: the first failed
// source read or encoder error aborts the whole pipeline, including the
// in-flight destination upload. A partially written temporary object may
// remain; store-side lifecycle rules expire it.
func (s *Service) Download(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (DownloadResult, error) {
	if err := ctx.Err(); err != nil {
		return DownloadResult{}, fmt.Errorf("download: %w", err)
	}
	if len(fileIDs) == 0 {
		return DownloadResult{}, fmt.Errorf("download: no ids provided: %w", ErrInvalidInput)
	}

	records, err := s.files.GetByIDs(ctx, fileIDs)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("download: %w", err)
	}
	if len(records) == 0 {
		return DownloadResult{}, fmt.Errorf("download: %w", ErrNotFound)
	}

	if len(records) == 1 {
		rec := records[0]
		url, err := s.blob.PresignGet(ctx, rec.StorageKey, PresignOptions{
			TTL:         s.urlTTL,
			Filename:    rec.OriginalName,
			Disposition: DispositionAttachment,
		})
		if err != nil {
			return DownloadResult{}, fmt.Errorf("download %s: %w", rec.ID, err)
		}
		return DownloadResult{URL: url, IsZip: false}, nil
	}

	// GetByIDs does not promise request order; the archive must keep it.
	byID := make(map[uuid.UUID]FileRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	ordered := make([]FileRecord, 0, len(records))
	for _, id := range fileIDs {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
			delete(byID, id)
		}
	}

	now := time.Now()
	key := ArchiveKey(userID, now)

	if err := s.buildArchive(ctx, key, ordered); err != nil {
		return DownloadResult{}, fmt.Errorf("download: %w", err)
	}

	url, err := s.blob.PresignGet(ctx, key, PresignOptions{
		TTL:         s.urlTTL,
		Filename:    fmt.Sprintf("upload-%d.zip", now.UnixMilli()),
		Disposition: DispositionAttachment,
	})
	if err != nil {
		return DownloadResult{}, fmt.Errorf("download: presign archive: %w", err)
	}
	return DownloadResult{URL: url, IsZip: true}, nil
}

// buildArchive pipes a zip encoder straight into a multipart blob upload.
// The pipe gives the producer/consumer pair bounded buffering: a stall on the
// destination backpressures the encoder instead of growing memory with the
// archive. Entries are appended in the order given, under sanitized names.
func (s *Service) buildArchive(ctx context.Context, key string, records []FileRecord) error {
	pr, pw := io.Pipe()

	uploadDone := make(chan error, 1)
	go func() {
		err := s.blob.Upload(ctx, key, pr, "application/zip")
		// Unblock the encoder if the upload dies first.
		_ = pr.CloseWithError(err)
		uploadDone <- err
	}()

	encodeErr := func() error {
		zw := zip.NewWriter(pw)
		names := make(map[string]int, len(records))

		for _, rec := range records {
			name := SanitizeFilename(rec.OriginalName)
			if n := names[name]; n > 0 {
				base, ext := SplitExt(name)
				if ext != "" {
					name = fmt.Sprintf("%s_%d.%s", base, n, ext)
				} else {
					name = fmt.Sprintf("%s_%d", base, n)
				}
			}
			names[SanitizeFilename(rec.OriginalName)]++

			entry, err := zw.CreateHeader(&zip.FileHeader{
				Name:     name,
				Method:   zip.Deflate,
				Modified: rec.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("archive entry %q: %w", name, err)
			}

			src, err := s.blob.GetStream(ctx, rec.StorageKey)
			if err != nil {
				return fmt.Errorf("archive source %s: %w", rec.ID, err)
			}

			_, err = io.Copy(entry, src)
			if closeErr := src.Close(); closeErr != nil {
				s.log.Warn("failed to close archive source", "key", rec.StorageKey, "err", closeErr)
			}
			if err != nil {
				return fmt.Errorf("archive copy %s: %w", rec.ID, err)
			}
		}

		if err := zw.Close(); err != nil {
			return fmt.Errorf("archive finalize: %w", err)
		}
		return nil
	}()

	if encodeErr != nil {
		// Abort the consumer; it sees the error instead of a clean EOF.
		_ = pw.CloseWithError(encodeErr)
		<-uploadDone
		return encodeErr
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("archive pipe close: %w", err)
	}
	if err := <-uploadDone; err != nil {
		return fmt.Errorf("archive upload: %w", err)
	}
	return nil
}
