package disk_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmalhotra/filedrive"
	"github.com/jmalhotra/filedrive/disk"
)

func newStore(t *testing.T) *disk.Store {
	t.Helper()
	root, err := os.OpenRoot(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return disk.NewStore(root)
}

func TestStore_PlaceAndOpen(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	loc, size, err := store.Place(ctx, ownerID, "notes.txt", bytes.NewBufferString("hello world"))
	require.NoError(t, err)

	assert.Equal(t, filedrive.LocatorLocal, loc.Kind)
	assert.Equal(t, int64(11), size)
	assert.True(t, strings.HasPrefix(loc.Path, ownerID.String()+"/"), "path %q should be owner-scoped", loc.Path)
	assert.True(t, strings.HasSuffix(loc.Path, "-notes.txt"), "path %q should end with the original name", loc.Path)

	f, err := store.Open(ctx, loc)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestStore_Place_SameNameNeverCollides(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	first, _, err := store.Place(ctx, ownerID, "notes.txt", bytes.NewBufferString("one"))
	require.NoError(t, err)

	second, _, err := store.Place(ctx, ownerID, "notes.txt", bytes.NewBufferString("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)

	f, err := store.Open(ctx, first)
	require.NoError(t, err)
	content, _ := io.ReadAll(f)
	_ = f.Close()
	assert.Equal(t, "one", string(content))
}

func TestStore_Place_SanitizesName(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	loc, _, err := store.Place(ctx, ownerID, "../../etc/passwd", bytes.NewBufferString("x"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(loc.Path, ownerID.String()+"/"))
	assert.True(t, strings.HasSuffix(loc.Path, "-passwd"))
	assert.NotContains(t, loc.Path, "..")
}

func TestStore_Place_FailedCopyLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	store := disk.NewStore(root)

	_, _, err = store.Place(context.Background(), uuid.New(), "notes.txt", iotest.ErrReader(errors.New("connection reset")))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".t"), "temp file %q left behind", entry.Name())
	}
}

func TestStore_Place_CancelledContext(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.Place(ctx, uuid.New(), "notes.txt", bytes.NewBufferString("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Open_Missing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	loc := filedrive.Locator{Kind: filedrive.LocatorLocal, Path: uuid.New().String() + "/123-gone.txt"}
	_, err := store.Open(ctx, loc)
	assert.ErrorIs(t, err, filedrive.ErrNotFoundOnDisk)
}

func TestStore_Open_RejectsForeignLocator(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	loc := filedrive.Locator{Kind: filedrive.LocatorRemote, URL: "http://x", RemoteKey: "k"}
	_, err := store.Open(ctx, loc)
	assert.ErrorIs(t, err, filedrive.ErrInvalidInput)
}

func TestStore_Remove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	loc, _, err := store.Place(ctx, ownerID, "notes.txt", bytes.NewBufferString("hello"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, loc))

	_, err = store.Open(ctx, loc)
	assert.ErrorIs(t, err, filedrive.ErrNotFoundOnDisk)

	// Removing again is not an error.
	assert.NoError(t, store.Remove(ctx, loc))
}
