package filevault

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// FileRepo persists FileRecord rows. Implementations must handle concurrent
// access safely; every method returns ErrNotFound (possibly wrapped) when a
// lookup matches nothing.
type FileRepo interface {
	// Insert stores a new record and fills in ID and timestamps.
	Insert(ctx context.Context, rec *FileRecord) error

	// GetByID returns the record with the given id regardless of owner.
	GetByID(ctx context.Context, id uuid.UUID) (FileRecord, error)

	// GetByIDs returns the records matching any of ids. Unknown ids are
	// silently absent from the result; no error is returned for them.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]FileRecord, error)

	// FindPage returns one page of userID's records whose original filename
	// contains keyword (case-insensitive; empty keyword matches all), newest
	// first, along with the total match count.
	FindPage(ctx context.Context, userID uuid.UUID, keyword string, skip, limit int) ([]FileRecord, int, error)

	// DeleteManyOwned deletes the records among ids that belong to userID and
	// returns how many rows went away. Foreign-owned ids are left untouched
	// and do not count.
	DeleteManyOwned(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int, error)

	// CountByOwner returns how many records userID owns.
	CountByOwner(ctx context.Context, userID uuid.UUID) (int, error)
}

// UsageRepo is the quota ledger store. IncrementIfUnderCap is the only
// admission path and must be atomic against concurrent reservations.
type UsageRepo interface {
	// EnsureRow creates the ledger row for userID with the given cap if it
	// does not exist yet.
	EnsureRow(ctx context.Context, userID uuid.UUID, capBytes int64) error

	// IncrementIfUnderCap adds delta to userID's consumed bytes only when the
	// result stays at or under the cap, in a single conditional write.
	// Returns ErrQuotaExceeded and leaves the ledger unchanged otherwise.
	IncrementIfUnderCap(ctx context.Context, userID uuid.UUID, delta int64) error

	// Decrement subtracts delta from userID's consumed bytes, flooring at zero.
	Decrement(ctx context.Context, userID uuid.UUID, delta int64) error

	// Get returns userID's ledger entry.
	Get(ctx context.Context, userID uuid.UUID) (StorageUsage, error)
}

// APIKeyRepo persists API keys. Only the SHA-256 digest of a secret is ever
// stored; lookups go through that digest.
type APIKeyRepo interface {
	Insert(ctx context.Context, key *APIKey) error
	GetByHash(ctx context.Context, hashedKey string) (APIKey, error)
	ListPage(ctx context.Context, userID uuid.UUID, skip, limit int) ([]APIKey, int, error)

	// DeleteOwned removes the key with the given id only when userID owns it.
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error

	// TouchLastUsed stamps the key's last-used time.
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}

// UserRepo persists accounts.
type UserRepo interface {
	Insert(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// EscapeLikePattern escapes special LIKE characters (%, _, \) so user input
// can be embedded in a LIKE/ILIKE pattern safely.
func EscapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}
