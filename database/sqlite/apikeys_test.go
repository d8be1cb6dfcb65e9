package sqlite_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/sqlite"
)

func insertKey(t *testing.T, repo *sqlite.APIKeyRepo, userID uuid.UUID, name string) filevault.APIKey {
	t.Helper()

	digest := sha256.Sum256([]byte(uuid.NewString()))
	key := filevault.APIKey{
		UserID:     userID,
		Name:       name,
		HashedKey:  hex.EncodeToString(digest[:]),
		DisplayKey: "fv_...abcd",
	}
	require.NoError(t, repo.Insert(context.Background(), &key))
	return key
}

func TestAPIKeyRepo_InsertAndGetByHash(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAPIKeyRepo(db)
	ctx := context.Background()

	owner := uuid.New()
	key := insertKey(t, repo, owner, "ci deploy")

	assert.NotEqual(t, uuid.Nil, key.ID)
	assert.False(t, key.CreatedAt.IsZero())

	t.Run("found by digest", func(t *testing.T) {
		got, err := repo.GetByHash(ctx, key.HashedKey)
		require.NoError(t, err)

		assert.Equal(t, key.ID, got.ID)
		assert.Equal(t, owner, got.UserID)
		assert.Equal(t, "ci deploy", got.Name)
		assert.Equal(t, "fv_...abcd", got.DisplayKey)
		assert.Nil(t, got.LastUsedAt, "fresh key has never been used")
	})

	t.Run("unknown digest", func(t *testing.T) {
		_, err := repo.GetByHash(ctx, "deadbeef")
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("duplicate digest rejected", func(t *testing.T) {
		dup := filevault.APIKey{UserID: owner, Name: "dup", HashedKey: key.HashedKey, DisplayKey: "fv_...abcd"}
		assert.Error(t, repo.Insert(ctx, &dup))
	})
}

func TestAPIKeyRepo_ListPage(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAPIKeyRepo(db)
	ctx := context.Background()

	owner := uuid.New()
	insertKey(t, repo, owner, "first")
	time.Sleep(2 * time.Millisecond)
	newest := insertKey(t, repo, owner, "second")
	insertKey(t, repo, uuid.New(), "foreign")

	t.Run("newest first, scoped to owner", func(t *testing.T) {
		keys, total, err := repo.ListPage(ctx, owner, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, keys, 2)
		assert.Equal(t, newest.ID, keys[0].ID)
	})

	t.Run("window past the end", func(t *testing.T) {
		keys, total, err := repo.ListPage(ctx, owner, 10, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Empty(t, keys)
	})
}

func TestAPIKeyRepo_DeleteOwned(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAPIKeyRepo(db)
	ctx := context.Background()

	owner := uuid.New()
	key := insertKey(t, repo, owner, "to revoke")

	t.Run("wrong owner cannot revoke", func(t *testing.T) {
		err := repo.DeleteOwned(ctx, key.ID, uuid.New())
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("owner revokes", func(t *testing.T) {
		require.NoError(t, repo.DeleteOwned(ctx, key.ID, owner))

		_, err := repo.GetByHash(ctx, key.HashedKey)
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("already gone", func(t *testing.T) {
		err := repo.DeleteOwned(ctx, key.ID, owner)
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})
}

func TestAPIKeyRepo_TouchLastUsed(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAPIKeyRepo(db)
	ctx := context.Background()

	key := insertKey(t, repo, uuid.New(), "touched")

	require.NoError(t, repo.TouchLastUsed(ctx, key.ID))

	got, err := repo.GetByHash(ctx, key.HashedKey)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.WithinDuration(t, time.Now(), *got.LastUsedAt, time.Minute)

	t.Run("unknown id", func(t *testing.T) {
		err := repo.TouchLastUsed(ctx, uuid.New())
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})
}
