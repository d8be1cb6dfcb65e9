package filevault

import (
	"log/slog"
	"time"
)

const (
	defaultURLTTL         = time.Hour
	defaultCleanupTimeout = 30 * time.Second
)

// ServiceConfig holds tuning knobs for the orchestrator.
type ServiceConfig struct {
	// URLTTL is the validity window of issued signed URLs (default: 1h).
	URLTTL time.Duration
	// CleanupTimeout bounds compensating blob deletes that run on a
	// background context after the request context is gone (default: 30s).
	CleanupTimeout time.Duration
	// Logger receives non-fatal orchestration events; defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Service orchestrates uploads, retrieval, bulk deletes, and archive
// downloads over a blob store and the metadata repositories. All durable
// consistency comes from operation ordering (blob before metadata on the way
// in, blob before metadata on the way out) plus idempotent blob deletes;
// there are no cross-process locks.
type Service struct {
	blob           BlobStore
	files          FileRepo
	usage          UsageRepo
	urlTTL         time.Duration
	cleanupTimeout time.Duration
	log            *slog.Logger
}

// NewService wires the orchestrator. Dependencies are passed in explicitly;
// the service holds no ambient state.
func NewService(blob BlobStore, files FileRepo, usage UsageRepo, cfg ServiceConfig) *Service {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = defaultURLTTL
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = defaultCleanupTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		blob:           blob,
		files:          files,
		usage:          usage,
		urlTTL:         cfg.URLTTL,
		cleanupTimeout: cfg.CleanupTimeout,
		log:            cfg.Logger,
	}
}
