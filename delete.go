package filevault

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Delete removes the given files: blobs first, concurrently, then one batched
// metadata deletion covering only the records whose blob delete succeeded.
// Blob deletion is idempotent, so a key that is already gone counts as
// success. The lookup does not filter by owner, so an id belonging to another
// user gets its blob deleted too; only the metadata deletion is owner
// filtered, leaving the foreign row behind. The response counts owner rows
// alone and so never confirms that a foreign id existed.
//
// This is not a rollback model. Completed deletions stand even when siblings
// fail; a batch with blob failures returns its counts together with a non-nil
// error so the caller can signal a server-side problem.
//
// Quota is released for the bytes of the records the owner-filtered deletion
// actually removed.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return DeleteResult{}, fmt.Errorf("delete files: %w", err)
	}
	if len(fileIDs) == 0 {
		return DeleteResult{}, fmt.Errorf("delete files: no ids provided: %w", ErrInvalidInput)
	}

	records, err := s.files.GetByIDs(ctx, fileIDs)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete files: %w", err)
	}
	if len(records) == 0 {
		return DeleteResult{}, fmt.Errorf("delete files: %w", ErrNotFound)
	}

	blobErrs := make([]error, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blobErrs[i] = s.blob.Delete(ctx, rec.StorageKey)
		}()
	}
	wg.Wait()

	var survivors []uuid.UUID
	bytesByID := make(map[uuid.UUID]int64, len(records))
	failed := 0
	for i, rec := range records {
		if blobErrs[i] != nil {
			s.log.Error("blob delete failed", "key", rec.StorageKey, "err", blobErrs[i])
			failed++
			continue
		}
		survivors = append(survivors, rec.ID)
		bytesByID[rec.ID] = rec.SizeBytes
	}

	deleted := 0
	if len(survivors) > 0 {
		deleted, err = s.files.DeleteManyOwned(ctx, survivors, userID)
		if err != nil {
			return DeleteResult{DeletedCount: 0, FailedCount: failed}, fmt.Errorf("delete files: metadata: %w", err)
		}

		// Only owner-filtered removals free quota. Records whose blob
		// vanished but whose row stayed (foreign owner) keep their bytes
		// accounted to whoever owns them.
		if deleted > 0 {
			var freed int64
			for _, rec := range records {
				if rec.UserID == userID {
					if b, ok := bytesByID[rec.ID]; ok {
						freed += b
					}
				}
			}
			s.releaseReservation(userID, freed)
		}
	}

	result := DeleteResult{DeletedCount: deleted, FailedCount: failed}
	if failed > 0 {
		return result, fmt.Errorf("delete files: %d blob deletions failed: %w", failed, ErrUpstream)
	}
	return result, nil
}
