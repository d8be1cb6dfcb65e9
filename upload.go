package filevault

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Upload stores a batch of files concurrently and independently: one file's
// failure never aborts or rolls back a sibling. For each file the blob is
// written first and the metadata record inserted only after the write is
// confirmed; if the insert fails the freshly written blob is deleted on a
// best-effort basis so no orphan is left without at least one cleanup
// attempt.
//
// Quota for the whole batch must already be reserved by the caller (the HTTP
// layer's quota gate); Upload releases the reservation of each file that
// fails so failed uploads do not permanently inflate the ledger. A call that
// bails out before the fan-out starts releases the whole batch at once.
//
// Partial success is success: the returned error is nil whenever at least one
// file made it, and the aggregate carries the per-file failure reasons. Only
// a batch with zero successes fails as a whole.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, files []IncomingFile, source UploadSource) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		s.releaseBatch(userID, files)
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	if len(files) == 0 {
		return UploadResult{}, fmt.Errorf("upload: no files provided: %w", ErrInvalidInput)
	}
	if !source.IsValid() {
		s.releaseBatch(userID, files)
		return UploadResult{}, fmt.Errorf("upload: invalid source %q: %w", source, ErrInvalidInput)
	}

	type outcome struct {
		uploaded FileUpload
		err      error
		name     string
	}

	outcomes := make([]outcome, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			up, err := s.uploadOne(ctx, userID, f, source)
			outcomes[i] = outcome{uploaded: up, err: err, name: f.Name}
		}()
	}
	wg.Wait()

	result := UploadResult{Total: len(files)}
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, UploadFailure{
				OriginalName: o.name,
				Reason:       o.err.Error(),
			})
			continue
		}
		result.Uploaded = append(result.Uploaded, o.uploaded)
	}

	if len(result.Uploaded) == 0 {
		return result, fmt.Errorf("upload: all %d files failed: %w", result.Total, ErrUpstream)
	}
	return result, nil
}

func (s *Service) uploadOne(ctx context.Context, userID uuid.UUID, f IncomingFile, source UploadSource) (FileUpload, error) {
	fail := func(err error) (FileUpload, error) {
		s.releaseReservation(userID, f.Size)
		return FileUpload{}, err
	}

	if f.Name == "" {
		return fail(fmt.Errorf("empty filename: %w", ErrInvalidInput))
	}
	if f.MimeType == "" {
		return fail(fmt.Errorf("missing mime type for %q: %w", f.Name, ErrInvalidInput))
	}

	key := StorageKey(userID, f.Name)

	if err := s.blob.Put(ctx, key, f.Content, f.MimeType); err != nil {
		return fail(fmt.Errorf("blob put %q: %w", f.Name, err))
	}

	_, ext := SplitExt(f.Name)
	rec := FileRecord{
		UserID:       userID,
		StorageKey:   key,
		OriginalName: f.Name,
		SizeBytes:    f.Size,
		Ext:          ext,
		MimeType:     f.MimeType,
		UploadVia:    source,
	}

	if err := s.files.Insert(ctx, &rec); err != nil {
		// The blob is now an orphan; compensate on a background context so
		// request cancellation cannot strand it without a cleanup attempt.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()
		if delErr := s.blob.Delete(cleanupCtx, key); delErr != nil {
			s.log.Warn("orphan blob cleanup failed", "key", key, "err", delErr)
		}
		return fail(fmt.Errorf("metadata insert %q: %w", f.Name, err))
	}

	return FileUpload{
		FileID:       rec.ID,
		OriginalName: rec.OriginalName,
		SizeBytes:    rec.SizeBytes,
		Ext:          rec.Ext,
		MimeType:     rec.MimeType,
	}, nil
}

// releaseBatch hands back the whole batch's reservation when an upload bails
// out before the per-file fan-out can settle accounts file by file.
func (s *Service) releaseBatch(userID uuid.UUID, files []IncomingFile) {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	s.releaseReservation(userID, total)
}

// releaseReservation hands back quota reserved for a file that did not make
// it. Runs on a background context; the ledger correction matters more than
// the request that triggered it.
func (s *Service) releaseReservation(userID uuid.UUID, bytes int64) {
	if bytes <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()
	if err := s.usage.Decrement(ctx, userID, bytes); err != nil {
		s.log.Warn("quota release failed", "user", userID, "bytes", bytes, "err", err)
	}
}
