package filevault

import (
	"context"
	"io"
	"time"
)

// Disposition selects the Content-Disposition a signed URL serves with.
type Disposition string

const (
	DispositionInline     Disposition = "inline"
	DispositionAttachment Disposition = "attachment"
)

// PresignOptions control the signed URL issued for one blob.
type PresignOptions struct {
	// TTL bounds how long the URL stays valid.
	TTL time.Duration
	// Filename, when set, forces an attachment download under that name.
	Filename string
	// ContentType overrides the response content type.
	ContentType string
	// Disposition selects inline display or attachment download.
	Disposition Disposition
}

// BlobStore is the narrow contract the orchestrators hold on the object store.
// Implementations must stream; none of the methods may buffer a whole object
// in memory.
//
// All methods accept a context for cancellation and timeout control.
type BlobStore interface {
	// Put writes the full content of r under key. The write either completes
	// or leaves nothing observable under key.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// GetStream opens the blob under key for reading. Returns ErrNotFound if
	// no such key exists. The caller closes the returned ReadCloser.
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob under key. Deleting a missing key is success;
	// the operation is idempotent.
	Delete(ctx context.Context, key string) error

	// Upload streams r into a new blob under key using multipart chunking,
	// so memory stays bounded by part size regardless of total length. It
	// blocks until the last byte is committed or r fails.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error

	// PresignGet issues a time-boxed signed URL granting direct read access
	// to the blob under key.
	PresignGet(ctx context.Context, key string, opts PresignOptions) (string, error)
}
