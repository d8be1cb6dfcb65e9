package filevault

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// QuotaService fronts the ledger store. All admission decisions go through
// the store's atomic conditional increment; this layer never reads and then
// writes.
type QuotaService struct {
	usage    UsageRepo
	files    FileRepo
	capBytes int64
}

// NewQuotaService builds the quota gate. capBytes is the ledger row cap given
// to users seen for the first time.
func NewQuotaService(usage UsageRepo, files FileRepo, capBytes int64) *QuotaService {
	return &QuotaService{usage: usage, files: files, capBytes: capBytes}
}

// ValidateAndReserve admits bytes against userID's cap in one atomic step.
// Two concurrent reservations whose sum exceeds the cap cannot both pass; the
// loser gets ErrQuotaExceeded and the ledger is unchanged. A failed upload
// hands its reservation back through Release.
func (s *QuotaService) ValidateAndReserve(ctx context.Context, userID uuid.UUID, bytes int64) error {
	if bytes <= 0 {
		return fmt.Errorf("reserve quota: non-positive size: %w", ErrInvalidInput)
	}

	if err := s.usage.EnsureRow(ctx, userID, s.capBytes); err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}

	if err := s.usage.IncrementIfUnderCap(ctx, userID, bytes); err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	return nil
}

// Release returns bytes to the user's ledger, flooring at zero.
func (s *QuotaService) Release(ctx context.Context, userID uuid.UUID, bytes int64) error {
	if bytes <= 0 {
		return nil
	}
	if err := s.usage.Decrement(ctx, userID, bytes); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// Summary reports the user's consumption against their cap, with a file
// count from the metadata store.
func (s *QuotaService) Summary(ctx context.Context, userID uuid.UUID) (StorageSummary, error) {
	if err := s.usage.EnsureRow(ctx, userID, s.capBytes); err != nil {
		return StorageSummary{}, fmt.Errorf("storage summary: %w", err)
	}

	u, err := s.usage.Get(ctx, userID)
	if err != nil {
		return StorageSummary{}, fmt.Errorf("storage summary: %w", err)
	}

	count, err := s.files.CountByOwner(ctx, userID)
	if err != nil {
		return StorageSummary{}, fmt.Errorf("storage summary: %w", err)
	}

	return StorageSummary{
		UsedBytes:      u.UsedBytes,
		CapBytes:       u.CapBytes,
		FileCount:      count,
		UsedFormatted:  FormatBytes(u.UsedBytes),
		CapFormatted:   FormatBytes(u.CapBytes),
		RemainingBytes: max(0, u.CapBytes-u.UsedBytes),
	}, nil
}
