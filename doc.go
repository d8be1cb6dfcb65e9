// Package filevault orchestrates file storage across an S3-compatible blob
// store and a SQL metadata store, keeping both sides consistent under partial
// failure.
//
// Filevault implements the core upload/list/download/delete operations with
// per-user quota enforcement, presigned URL issuance, and an on-the-fly zip
// archive pipeline for multi-file downloads.
//
// # Key Components
//
//   - Service: Main orchestrator combining the metadata repository and blob storage
//   - BlobStore: Interface for object storage (S3 via the s3blob package)
//   - FileRepo / UsageRepo / APIKeyRepo / UserRepo: Metadata persistence
//     interfaces (PostgreSQL, SQLite)
//   - QuotaService: Atomic per-user storage accounting against a cap
//
// # Consistency Model
//
// A file record exists only if its blob was confirmed written: uploads write
// the blob first and compensate with a best-effort blob delete when the
// metadata insert fails. Deletes run the other way around, removing blobs
// before metadata so a record never outlives its bytes. Blob deletion is
// idempotent; deleting an already-absent key counts as success.
//
// # Example Usage
//
//	svc := filevault.NewService(blob, files, usage, filevault.ServiceConfig{})
//
//	// Upload a batch of files
//	result, err := svc.Upload(ctx, userID, incoming, filevault.SourceWeb)
//
//	// Issue a download URL (single file or streamed zip archive)
//	dl, err := svc.Download(ctx, userID, ids)
//
// See the http package for the REST API and the database package for metadata
// backend implementations.
package filevault
