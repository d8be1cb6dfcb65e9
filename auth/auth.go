// Package auth provides account registration, login, and the two caller
// identity mechanisms the HTTP layer verifies: JWT access tokens and API
// keys. Passwords are hashed with bcrypt; API key secrets are stored only as
// SHA-256 digests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sagarc03/filevault"
)

const defaultTokenTTL = 24 * time.Hour

// Config holds token settings for the auth service.
type Config struct {
	// JWTSecret signs and verifies access tokens.
	JWTSecret string
	// TokenTTL is the access token lifetime (default: 24h).
	TokenTTL time.Duration
}

// Service implements registration, login, and token verification.
type Service struct {
	users    filevault.UserRepo
	secret   []byte
	tokenTTL time.Duration
}

// NewService wires the auth service. The JWT secret must be non-empty.
func NewService(users filevault.UserRepo, cfg Config) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("new auth service: empty jwt secret")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Service{users: users, secret: []byte(cfg.JWTSecret), tokenTTL: ttl}, nil
}

// Register creates an account. Emails are stored lowercase; the password is
// bcrypt-hashed before it touches the repo.
func (s *Service) Register(ctx context.Context, name, email, password string) (filevault.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" {
		return filevault.User{}, fmt.Errorf("register: name and email required: %w", filevault.ErrInvalidInput)
	}
	if len(password) < 8 {
		return filevault.User{}, fmt.Errorf("register: password too short: %w", filevault.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return filevault.User{}, fmt.Errorf("register: hash password: %w", err)
	}

	u := filevault.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.users.Insert(ctx, &u); err != nil {
		return filevault.User{}, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

// Login verifies credentials and returns the user with a signed access
// token. A missing user and a wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password string) (filevault.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, filevault.ErrNotFound) {
			return filevault.User{}, "", fmt.Errorf("login: %w", filevault.ErrUnauthorized)
		}
		return filevault.User{}, "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return filevault.User{}, "", fmt.Errorf("login: %w", filevault.ErrUnauthorized)
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return filevault.User{}, "", fmt.Errorf("login: %w", err)
	}
	return u, token, nil
}

type claims struct {
	jwt.RegisteredClaims
}

func (s *Service) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a signed access token and returns the user id it
// carries.
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("verify token: %w", filevault.ErrUnauthorized)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("verify token: bad subject: %w", filevault.ErrUnauthorized)
	}
	return userID, nil
}
