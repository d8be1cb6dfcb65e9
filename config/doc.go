// Package config provides configuration loading and validation for filevault.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEVAULT_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEVAULT_ prefix:
//   - server.port → FILEVAULT_SERVER_PORT
//   - database.type → FILEVAULT_DATABASE_TYPE
//   - s3.bucket → FILEVAULT_S3_BUCKET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and max_upload_size
//   - Service: url_ttl for signed URLs and cleanup_timeout for compensating deletes
//   - Database: type (sqlite/postgres) and DSN
//   - S3: region, bucket, endpoint, and credentials for the object store
//   - Auth: JWT secret and token lifetime
//   - Quota: per-user storage cap in bytes
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - S3 bucket is required
//   - JWT secret must be at least 32 bytes
//   - Log level must be debug, info, warn, or error
package config
