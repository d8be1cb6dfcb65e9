package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/filevault"
)

// UserRepo persists accounts in the users table.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Insert(ctx context.Context, u *filevault.User) error {
	query := `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (filevault.User, error) {
	return r.getBy(ctx, `email = $1`, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (filevault.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *UserRepo) getBy(ctx context.Context, cond string, arg any) (filevault.User, error) {
	query := fmt.Sprintf(`
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE %s
	`, cond)

	var u filevault.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.User{}, filevault.ErrNotFound
		}
		return filevault.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
