package filedrive

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ParseID parses an entity identifier from its wire form, mapping malformed
// values to ErrInvalidInput.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("parse id %q: %w", s, ErrInvalidInput)
	}
	return id, nil
}

var alphanumericRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// IsAlphanumeric reports whether s is non-empty ASCII letters and digits.
// Usernames and personal names in registration are held to this rule.
func IsAlphanumeric(s string) bool {
	return alphanumericRegex.MatchString(s)
}

// SafeBaseName reduces an uploaded file name to its final path element and
// strips characters that would escape or confuse a storage path. The result
// is never empty; unusable names collapse to "file".
func SafeBaseName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, `/`))
	name = strings.Map(func(r rune) rune {
		if r == 0 || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// detectMimeType maps a file name's extension to a media type, defaulting
// to application/octet-stream.
func detectMimeType(name string) string {
	ext := filepath.Ext(name)
	contentType := mime.TypeByExtension(ext)

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}
