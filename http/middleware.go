package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	sourceKey contextKey = "uploadSource"
)

// TokenVerifier validates a JWT bearer token and returns the subject user id.
type TokenVerifier interface {
	VerifyToken(token string) (uuid.UUID, error)
}

// KeyAuthenticator resolves a raw API key to its owning user id.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (uuid.UUID, error)
}

// UserID returns the authenticated user id stored by the auth middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// Source returns the upload source tag set by the auth middleware.
func Source(ctx context.Context) filevault.UploadSource {
	if s, ok := ctx.Value(sourceKey).(filevault.UploadSource); ok {
		return s
	}
	return filevault.SourceWeb
}

// JWTAuth authenticates requests with an Authorization: Bearer token and tags
// them with the web upload source.
func JWTAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			userID, err := verifier.VerifyToken(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, sourceKey, filevault.SourceWeb)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyAuth authenticates requests with an X-API-Key header and tags them
// with the api upload source.
func APIKeyAuth(keys KeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
				return
			}

			userID, err := keys.Authenticate(r.Context(), rawKey)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, sourceKey, filevault.SourceAPI)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
