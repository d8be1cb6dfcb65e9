package filevault

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxBasenameLen = 64

// SanitizeFilename reduces a user-supplied filename to a form that is safe to
// embed in a storage key or zip entry. It keeps only the final path element,
// strips control characters and characters with meaning to object stores or
// URLs, and collapses whitespace to single underscores. A name with nothing
// left after cleaning becomes "file".
func SanitizeFilename(name string) string {
	// Drop any directory part, whichever separator convention produced it.
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	if name == "." || name == "/" || !utf8.ValidString(name) {
		return "file"
	}

	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// control characters dropped outright
		case r == '/' || r == '\\' || strings.ContainsRune(`?#%&{}<>"'`+"`", r):
			// separators and URL/shell-significant characters dropped
		case r == ' ' || r == '\t':
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		default:
			b.WriteRune(r)
			lastUnderscore = false
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}

// SplitExt splits a filename into basename and lowercase extension (without
// the dot).
func SplitExt(name string) (base, ext string) {
	ext = path.Ext(name)
	base = strings.TrimSuffix(name, ext)
	return base, strings.ToLower(strings.TrimPrefix(ext, "."))
}

// StorageKey derives a collision-resistant object key for one upload,
// namespaced under the owning user. The random id keeps keys unique; the
// sanitized, length-capped basename keeps them recognizable in bucket
// listings.
func StorageKey(userID uuid.UUID, originalName string) string {
	base, ext := SplitExt(originalName)

	clean := SanitizeFilename(base)
	if n := []rune(clean); len(n) > maxBasenameLen {
		clean = string(n[:maxBasenameLen])
	}

	key := fmt.Sprintf("users/%s/%s-%s", userID, uuid.New(), clean)
	if ext != "" {
		key += "." + ext
	}
	return key
}

// ArchiveKey derives the object key for a temporary zip archive. Archives are
// not tracked in metadata; store-side lifecycle rules expire them.
func ArchiveKey(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("temp-zips/%s/%d.zip", userID, now.UnixMilli())
}
