// Package disk provides the local filesystem storage backend. Objects are
// written atomically (temp file then rename) under a lazily created
// per-owner directory, and removal is idempotent.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/jmalhotra/filedrive"
)

// Store places and serves object bytes under a sandboxed root directory.
type Store struct {
	root *os.Root
}

// NewStore creates a Store over the given root. The root provides sandboxed
// file operations preventing path traversal.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Place writes content under the owner's directory, creating the directory
// on first use. Concurrent first uploads race benignly: MkdirAll treats an
// existing directory as success. The stored name carries a timestamp and a
// random component so repeated uploads of the same file never collide.
func (s *Store) Place(ctx context.Context, ownerID uuid.UUID, name string, content io.Reader) (filedrive.Locator, int64, error) {
	if err := ctx.Err(); err != nil {
		return filedrive.Locator{}, 0, err
	}

	ownerDir := ownerID.String()
	if err := s.root.MkdirAll(ownerDir, 0o750); err != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("create owner directory: %w", err)
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			// t.Name reports the path prefixed with the root's own name;
			// Remove wants it root-relative.
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	size, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("could not sync written file: %w", err)
	}

	dest := path.Join(ownerDir, storedName(name))
	if renameErr := s.root.Rename(tmpFile, dest); renameErr != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return filedrive.Locator{Kind: filedrive.LocatorLocal, Path: dest}, size, nil
}

// Open retrieves a previously placed object for reading. Returns
// filedrive.ErrNotFoundOnDisk when the path no longer exists.
func (s *Store) Open(ctx context.Context, loc filedrive.Locator) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if loc.Kind != filedrive.LocatorLocal {
		return nil, fmt.Errorf("open: %w: locator kind %q is not local", filedrive.ErrInvalidInput, loc.Kind)
	}

	f, err := s.root.Open(loc.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, filedrive.ErrNotFoundOnDisk
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Remove deletes the object at the locator's path. Removing a missing
// object is not an error.
func (s *Store) Remove(ctx context.Context, loc filedrive.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if loc.Kind != filedrive.LocatorLocal {
		return fmt.Errorf("remove: %w: locator kind %q is not local", filedrive.ErrInvalidInput, loc.Kind)
	}

	err := s.root.Remove(loc.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// storedName generates a collision-resistant on-disk name that still ends
// with the original (sanitized) file name.
func storedName(original string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.New().String()[:8], filedrive.SafeBaseName(original))
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
