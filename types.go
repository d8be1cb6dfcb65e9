package filevault

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// UploadSource tags where an upload entered the system.
type UploadSource string

const (
	SourceWeb UploadSource = "web"
	SourceAPI UploadSource = "api"
)

func (s UploadSource) IsValid() bool {
	switch s {
	case SourceWeb, SourceAPI:
		return true
	default:
		return false
	}
}

// FileRecord is the metadata row for one stored blob. StorageKey locates the
// blob in the object store and is never exposed outside the process.
type FileRecord struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	StorageKey   string       `json:"-"`
	OriginalName string       `json:"original_name"`
	SizeBytes    int64        `json:"size_bytes"`
	Ext          string       `json:"ext"`
	MimeType     string       `json:"mime_type"`
	UploadVia    UploadSource `json:"upload_via"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IncomingFile is one file in an upload batch. Content is fully read exactly
// once during the blob put.
type IncomingFile struct {
	Name     string
	Size     int64
	MimeType string
	Content  io.Reader
}

// FileUpload describes one successfully uploaded file in an UploadResult.
type FileUpload struct {
	FileID       uuid.UUID `json:"fileId"`
	OriginalName string    `json:"originalName"`
	SizeBytes    int64     `json:"size"`
	Ext          string    `json:"ext"`
	MimeType     string    `json:"mimeType"`
}

// UploadFailure carries the per-file reason for a failed upload unit.
type UploadFailure struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

// UploadResult aggregates the independent per-file outcomes of one batch.
type UploadResult struct {
	Uploaded []FileUpload    `json:"data"`
	Failed   []UploadFailure `json:"failed,omitempty"`
	Total    int             `json:"total"`
}

func (r UploadResult) Message() string {
	return fmt.Sprintf("Uploaded successfully %d out of %d", len(r.Uploaded), r.Total)
}

// ListQuery selects a page of a user's files. Keyword is a case-insensitive
// substring match against the original filename.
type ListQuery struct {
	Keyword    string
	PageSize   int
	PageNumber int
}

// Skip returns the offset implied by the page settings.
func (q ListQuery) Skip() int {
	return (q.PageNumber - 1) * q.PageSize
}

// Pagination is the page envelope returned alongside list results.
type Pagination struct {
	PageSize   int `json:"pageSize"`
	PageNumber int `json:"pageNumber"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
	Skip       int `json:"skip"`
}

// FileInfo is a FileRecord resolved for the outside world: the storage key is
// replaced with a short-lived signed URL.
type FileInfo struct {
	FileRecord
	URL string `json:"url"`
}

// ListResult is one page of files with resolved URLs.
type ListResult struct {
	Files      []FileInfo `json:"files"`
	Pagination Pagination `json:"pagination"`
}

// DeleteResult reports the outcome of a bulk delete. Deletions that completed
// stand even when others failed.
type DeleteResult struct {
	DeletedCount int `json:"deletedCount"`
	FailedCount  int `json:"failedCount"`
}

// DownloadResult is a signed URL to either a single file or a freshly built
// zip archive of several.
type DownloadResult struct {
	URL   string `json:"downloadUrl"`
	IsZip bool   `json:"isZip"`
}

// StorageUsage is one user's quota ledger entry.
type StorageUsage struct {
	UserID    uuid.UUID `json:"user_id"`
	UsedBytes int64     `json:"used_bytes"`
	CapBytes  int64     `json:"cap_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StorageSummary is the user-facing view of the ledger.
type StorageSummary struct {
	UsedBytes      int64  `json:"usedBytes"`
	CapBytes       int64  `json:"capBytes"`
	FileCount      int    `json:"fileCount"`
	UsedFormatted  string `json:"usedFormatted"`
	CapFormatted   string `json:"capFormatted"`
	RemainingBytes int64  `json:"remainingBytes"`
}

// APIKey is a stored API key. The raw secret is hashed before persistence and
// is only ever returned once, at creation time.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	DisplayKey string     `json:"displayKey"`
	HashedKey  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// User is an account that owns files, usage, and API keys.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FormatBytes renders a byte count in a human readable unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
