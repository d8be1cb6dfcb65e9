package sqlite_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/sqlite"
)

func TestUserRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUserRepo(db)
	ctx := context.Background()

	user := filevault.User{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$notarealhash",
	}
	require.NoError(t, repo.Insert(ctx, &user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	t.Run("get by email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "Ada", got.Name)
		assert.Equal(t, "$2a$10$notarealhash", got.PasswordHash)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := filevault.User{Name: "Ada Again", Email: "ada@example.com", PasswordHash: "x"}
		assert.Error(t, repo.Insert(ctx, &dup))
	})
}
