package postgres_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/postgres"
)

func insertTestFile(t *testing.T, repo *postgres.FileRepo, userID uuid.UUID, name string, size int64) filevault.FileRecord {
	t.Helper()

	rec := filevault.FileRecord{
		UserID:       userID,
		StorageKey:   "users/" + userID.String() + "/" + uuid.NewString() + "-" + name,
		OriginalName: name,
		SizeBytes:    size,
		Ext:          "pdf",
		MimeType:     "application/pdf",
		UploadVia:    filevault.SourceAPI,
	}
	require.NoError(t, repo.Insert(context.Background(), &rec))
	return rec
}

func TestFileRepo_Postgres(t *testing.T) {
	pool := getSharedTestDatabase(t)
	repo := postgres.NewFileRepo(pool)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()

	rec := insertTestFile(t, repo, owner, "report.pdf", 2048)
	time.Sleep(2 * time.Millisecond)
	newest := insertTestFile(t, repo, owner, "notes.txt", 64)
	foreign := insertTestFile(t, repo, other, "report-other.pdf", 100)

	t.Run("get by id round trips", func(t *testing.T) {
		got, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, owner, got.UserID)
		assert.Equal(t, "report.pdf", got.OriginalName)
		assert.Equal(t, int64(2048), got.SizeBytes)
		assert.Equal(t, filevault.SourceAPI, got.UploadVia)
	})

	t.Run("get by id not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("get by ids skips unknown", func(t *testing.T) {
		got, err := repo.GetByIDs(ctx, []uuid.UUID{rec.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rec.ID, got[0].ID)
	})

	t.Run("find page newest first", func(t *testing.T) {
		got, total, err := repo.FindPage(ctx, owner, "", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, got, 2)
		assert.Equal(t, newest.ID, got[0].ID)
	})

	t.Run("find page keyword is case insensitive", func(t *testing.T) {
		_, total, err := repo.FindPage(ctx, owner, "REPORT", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("count by owner", func(t *testing.T) {
		count, err := repo.CountByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("delete many skips foreign rows", func(t *testing.T) {
		n, err := repo.DeleteManyOwned(ctx, []uuid.UUID{rec.ID, newest.ID, foreign.ID}, owner)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = repo.GetByID(ctx, foreign.ID)
		assert.NoError(t, err)
	})
}

func TestUsageRepo_Postgres(t *testing.T) {
	pool := getSharedTestDatabase(t)
	repo := postgres.NewUsageRepo(pool)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, repo.EnsureRow(ctx, userID, 1000))
	require.NoError(t, repo.EnsureRow(ctx, userID, 5000), "ensure is idempotent")

	t.Run("reserve up to the cap", func(t *testing.T) {
		require.NoError(t, repo.IncrementIfUnderCap(ctx, userID, 1000))

		err := repo.IncrementIfUnderCap(ctx, userID, 1)
		assert.ErrorIs(t, err, filevault.ErrQuotaExceeded)

		u, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), u.UsedBytes)
		assert.Equal(t, int64(1000), u.CapBytes, "second ensure kept the original cap")
	})

	t.Run("decrement floors at zero", func(t *testing.T) {
		require.NoError(t, repo.Decrement(ctx, userID, 5000))

		u, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		assert.Zero(t, u.UsedBytes)
	})

	t.Run("missing ledger", func(t *testing.T) {
		assert.ErrorIs(t, repo.IncrementIfUnderCap(ctx, uuid.New(), 1), filevault.ErrQuotaExceeded)
		assert.ErrorIs(t, repo.Decrement(ctx, uuid.New(), 1), filevault.ErrNotFound)

		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})
}

func TestUsageRepo_Postgres_ConcurrentReserve(t *testing.T) {
	pool := getSharedTestDatabase(t)
	repo := postgres.NewUsageRepo(pool)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, repo.EnsureRow(ctx, userID, 1000))

	// Ten racing reservations of 300 bytes against a 1000 byte cap. At most
	// three can win, no matter how the writes interleave.
	const workers = 10
	const chunk = int64(300)

	var wg sync.WaitGroup
	var rejected atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.IncrementIfUnderCap(ctx, userID, chunk)
			if errors.Is(err, filevault.ErrQuotaExceeded) {
				rejected.Add(1)
				return
			}
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.LessOrEqual(t, u.UsedBytes, u.CapBytes, "racing reserves must never oversubscribe")
	assert.Equal(t, int64(workers)-rejected.Load(), u.UsedBytes/chunk)
}

func TestAPIKeyRepo_Postgres(t *testing.T) {
	pool := getSharedTestDatabase(t)
	repo := postgres.NewAPIKeyRepo(pool)
	ctx := context.Background()

	owner := uuid.New()
	digest := sha256.Sum256([]byte(uuid.NewString()))
	key := filevault.APIKey{
		UserID:     owner,
		Name:       "ci deploy",
		HashedKey:  hex.EncodeToString(digest[:]),
		DisplayKey: "fv_...abcd",
	}
	require.NoError(t, repo.Insert(ctx, &key))

	t.Run("lookup by digest", func(t *testing.T) {
		got, err := repo.GetByHash(ctx, key.HashedKey)
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
		assert.Nil(t, got.LastUsedAt)
	})

	t.Run("touch records use", func(t *testing.T) {
		require.NoError(t, repo.TouchLastUsed(ctx, key.ID))

		got, err := repo.GetByHash(ctx, key.HashedKey)
		require.NoError(t, err)
		require.NotNil(t, got.LastUsedAt)
		assert.WithinDuration(t, time.Now(), *got.LastUsedAt, time.Minute)
	})

	t.Run("list scoped to owner", func(t *testing.T) {
		keys, total, err := repo.ListPage(ctx, owner, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, keys, 1)
	})

	t.Run("revoke requires ownership", func(t *testing.T) {
		assert.ErrorIs(t, repo.DeleteOwned(ctx, key.ID, uuid.New()), filevault.ErrNotFound)
		require.NoError(t, repo.DeleteOwned(ctx, key.ID, owner))

		_, err := repo.GetByHash(ctx, key.HashedKey)
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})
}

func TestUserRepo_Postgres(t *testing.T) {
	pool := getSharedTestDatabase(t)
	repo := postgres.NewUserRepo(pool)
	ctx := context.Background()

	email := uuid.NewString() + "@example.com"
	user := filevault.User{Name: "Ada", Email: email, PasswordHash: "$2a$10$notarealhash"}
	require.NoError(t, repo.Insert(ctx, &user))

	t.Run("get by email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "Ada", got.Name)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, email, got.Email)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := filevault.User{Name: "Ada Again", Email: email, PasswordHash: "x"}
		assert.Error(t, repo.Insert(ctx, &dup))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})
}
