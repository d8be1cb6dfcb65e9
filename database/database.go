// Package database selects and wires a metadata backend from configuration.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/postgres"
	"github.com/sagarc03/filevault/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string
	// DSN is the data source name (connection string)
	DSN string
}

// Stores bundles the repositories backed by a single database connection.
type Stores struct {
	Files   filevault.FileRepo
	Usage   filevault.UsageRepo
	APIKeys filevault.APIKeyRepo
	Users   filevault.UserRepo
}

// Connect establishes a connection to the configured database backend,
// runs migrations, and returns the repository bundle. The returned cleanup
// function should be called to close the connection.
func Connect(ctx context.Context, cfg Config) (Stores, func(), error) {
	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN)
	default:
		return Stores{}, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, dsn string) (Stores, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return Stores{}, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = sqlite.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return Stores{}, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	stores := Stores{
		Files:   sqlite.NewFileRepo(db),
		Usage:   sqlite.NewUsageRepo(db),
		APIKeys: sqlite.NewAPIKeyRepo(db),
		Users:   sqlite.NewUserRepo(db),
	}

	cleanup := func() {
		_ = db.Close()
	}

	return stores, cleanup, nil
}

func connectPostgres(ctx context.Context, dsn string) (Stores, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := Stores{
		Files:   postgres.NewFileRepo(pool),
		Usage:   postgres.NewUsageRepo(pool),
		APIKeys: postgres.NewAPIKeyRepo(pool),
		Users:   postgres.NewUserRepo(pool),
	}

	return stores, pool.Close, nil
}
