package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
)

// UserRepo persists user accounts.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Insert(ctx context.Context, u *filevault.User) error {
	now := nowText()
	id := uuid.New()

	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, id.String(), u.Name, u.Email, u.PasswordHash, now, now)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	u.ID = id
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	u.UpdatedAt = u.CreatedAt
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (filevault.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (filevault.User, error) {
	return r.getBy(ctx, "id = ?", id.String())
}

func (r *UserRepo) getBy(ctx context.Context, cond string, arg any) (filevault.User, error) {
	query := fmt.Sprintf(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE %s`, cond)

	var u filevault.User
	var id, createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filevault.User{}, filevault.ErrNotFound
		}
		return filevault.User{}, fmt.Errorf("get user: %w", err)
	}

	if u.ID, err = uuid.Parse(id); err != nil {
		return filevault.User{}, fmt.Errorf("get user: parse id: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return filevault.User{}, fmt.Errorf("get user: parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return filevault.User{}, fmt.Errorf("get user: parse updated_at: %w", err)
	}
	return u, nil
}
