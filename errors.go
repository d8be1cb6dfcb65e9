package filevault

import "errors"

var (
	// ErrNotFound is returned when a file, key, or user record is not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication or ownership checks fail
	ErrUnauthorized = errors.New("unauthorized")
	// ErrQuotaExceeded is returned when a reservation would push a user's
	// consumed storage past their cap
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrUpstream is returned when a blob store or metadata store call failed
	ErrUpstream = errors.New("upstream store failure")
)
