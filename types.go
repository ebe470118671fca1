package filedrive

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// User is an authenticated principal. Password hashes never leave the
// persistence boundary in API responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Folder is a named container in a user's drive. A nil ParentID marks a
// root folder; the tree is an independent forest per owner.
type Folder struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// LocatorKind tags where a file's bytes live. It is decided once at
// creation time and carried verbatim; it is never re-derived from the
// stored path or URL.
type LocatorKind string

const (
	// LocatorNone marks a placeholder record created without bytes.
	LocatorNone LocatorKind = "none"
	// LocatorLocal marks bytes stored on the local filesystem.
	LocatorLocal LocatorKind = "local"
	// LocatorRemote marks bytes held by the remote blob store.
	LocatorRemote LocatorKind = "remote"
)

func (k LocatorKind) IsValid() bool {
	switch k {
	case LocatorNone, LocatorLocal, LocatorRemote:
		return true
	default:
		return false
	}
}

// Locator identifies where and how a file's bytes are stored. Exactly the
// fields matching Kind are set: Path for local, URL and RemoteKey for
// remote, none for placeholder records.
type Locator struct {
	Kind      LocatorKind `json:"kind"`
	Path      string      `json:"path,omitempty"`
	URL       string      `json:"url,omitempty"`
	RemoteKey string      `json:"remote_key,omitempty"`
}

// Validate checks kind/field consistency for a locator.
func (l Locator) Validate() error {
	switch l.Kind {
	case LocatorNone:
		if l.Path != "" || l.URL != "" || l.RemoteKey != "" {
			return fmt.Errorf("validate locator: %w: empty locator carries no address", ErrInvalidInput)
		}
	case LocatorLocal:
		if l.Path == "" {
			return fmt.Errorf("validate locator: %w: local locator requires a path", ErrInvalidInput)
		}
		if l.URL != "" || l.RemoteKey != "" {
			return fmt.Errorf("validate locator: %w: local locator carries no remote address", ErrInvalidInput)
		}
	case LocatorRemote:
		if l.URL == "" || l.RemoteKey == "" {
			return fmt.Errorf("validate locator: %w: remote locator requires url and key", ErrInvalidInput)
		}
		if l.Path != "" {
			return fmt.Errorf("validate locator: %w: remote locator carries no local path", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("validate locator: %w: unknown kind %q", ErrInvalidInput, l.Kind)
	}
	return nil
}

// File is an uploaded object's metadata record. A nil FolderID places the
// file at the drive root.
type File struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	FolderID  *uuid.UUID `json:"folder_id,omitempty"`
	Size      int64      `json:"size"`
	MimeType  string     `json:"mime_type"`
	Locator   Locator    `json:"locator"`
	CreatedAt time.Time  `json:"created_at"`
}

// DriveView is one tree-scoped listing: the scope folder (nil at root) and
// the subfolders and files at exactly that level, most recent first.
type DriveView struct {
	Folder     *Folder  `json:"folder"`
	Subfolders []Folder `json:"subfolders"`
	Files      []File   `json:"files"`
}

// DownloadInstruction tells the boundary layer how to serve a file's bytes.
// Exactly one of RedirectURL or Content is set: remote locators redirect,
// local locators stream.
type DownloadInstruction struct {
	RedirectURL string
	Content     io.ReadSeekCloser
	Name        string
	MimeType    string
	Size        int64
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Users   string `mapstructure:"users"`
	Folders string `mapstructure:"folders"`
	Files   string `mapstructure:"files"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	for _, name := range []string{t.Users, t.Folders, t.Files} {
		if name == "" {
			return errors.New("validate tables: table name cannot be empty")
		}
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
		}
	}
	return nil
}
