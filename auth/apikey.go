package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
)

const (
	apiKeyPrefix      = "fv_"
	apiKeySecretBytes = 20
)

// APIKeyService manages programmatic access keys. A key's raw secret exists
// in memory for the duration of the create call and is never persisted or
// retrievable again; only its SHA-256 digest and a redacted display form are
// stored.
type APIKeyService struct {
	keys filevault.APIKeyRepo
	log  *slog.Logger
}

func NewAPIKeyService(keys filevault.APIKeyRepo, logger *slog.Logger) *APIKeyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyService{keys: keys, log: logger}
}

// CreatedKey is the one-time response to key creation. RawKey is shown to the
// user exactly once.
type CreatedKey struct {
	RawKey string           `json:"rawKey"`
	Key    filevault.APIKey `json:"key"`
}

// Create mints a new key for the user. The returned CreatedKey carries the
// raw secret; everything stored is derived from it.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, name string) (CreatedKey, error) {
	if name == "" {
		return CreatedKey{}, fmt.Errorf("create api key: name required: %w", filevault.ErrInvalidInput)
	}

	raw, hashed, display, err := generateKey()
	if err != nil {
		return CreatedKey{}, fmt.Errorf("create api key: %w", err)
	}

	key := filevault.APIKey{
		UserID:     userID,
		Name:       name,
		DisplayKey: display,
		HashedKey:  hashed,
	}
	if err := s.keys.Insert(ctx, &key); err != nil {
		return CreatedKey{}, fmt.Errorf("create api key: %w", err)
	}

	return CreatedKey{RawKey: raw, Key: key}, nil
}

// List returns one page of the user's keys, newest first.
func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID, pageSize, pageNumber int) ([]filevault.APIKey, filevault.Pagination, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageNumber <= 0 {
		pageNumber = 1
	}
	skip := (pageNumber - 1) * pageSize

	keys, total, err := s.keys.ListPage(ctx, userID, skip, pageSize)
	if err != nil {
		return nil, filevault.Pagination{}, fmt.Errorf("list api keys: %w", err)
	}

	return keys, filevault.Pagination{
		PageSize:   pageSize,
		PageNumber: pageNumber,
		TotalPages: (total + pageSize - 1) / pageSize,
		TotalCount: total,
		Skip:       skip,
	}, nil
}

// Delete removes the user's key. A key the user does not own reports
// ErrNotFound, never a hint that it exists.
func (s *APIKeyService) Delete(ctx context.Context, userID, keyID uuid.UUID) error {
	if err := s.keys.DeleteOwned(ctx, keyID, userID); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// Authenticate resolves a presented raw key to its owning user and stamps the
// key's last-used time. The stamp is best-effort; a failed touch never blocks
// an otherwise valid caller.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (uuid.UUID, error) {
	if rawKey == "" {
		return uuid.Nil, fmt.Errorf("authenticate api key: %w", filevault.ErrUnauthorized)
	}

	hashed := hashKey(rawKey)
	key, err := s.keys.GetByHash(ctx, hashed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("authenticate api key: %w", filevault.ErrUnauthorized)
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID); err != nil {
		s.log.Warn("failed to touch api key", "key", key.DisplayKey, "err", err)
	}

	return key.UserID, nil
}

func generateKey() (raw, hashed, display string, err error) {
	buf := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate key: %w", err)
	}

	raw = apiKeyPrefix + hex.EncodeToString(buf)
	hashed = hashKey(raw)
	display = apiKeyPrefix + "..." + raw[len(raw)-4:]
	return raw, hashed, display, nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
