package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/jmalhotra/filedrive"
)

func TestTimestampEncoding(t *testing.T) {
	// A whole second is the worst case for a variable-width encoding:
	// RFC3339Nano renders it without a fraction, so "...00Z" would sort
	// after "...00.5Z".
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(500 * time.Millisecond)

	a := older.Format(timeLayout)
	b := newer.Format(timeLayout)
	assert.Less(t, a, b, "text order must match time order")
	assert.Len(t, b, len(a), "encoding must be fixed-width")
	assert.Len(t, now(), len(a))

	parsed, err := scanTime(b)
	require.NoError(t, err)
	assert.True(t, newer.Equal(parsed))
}

func TestFolderRepo_SubSecondOrdering(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// A :memory: database exists per connection; pin the pool to one.
	db.SetMaxOpenConns(1)

	tables := filedrive.Tables{Users: "users", Folders: "folders", Files: "files"}
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, tables))

	users, folders, _, err := NewRepos(db, tables)
	require.NoError(t, err)

	owner, err := users.Create(ctx, filedrive.NewUser{Username: "jdoe", PasswordHash: "x"})
	require.NoError(t, err)

	older, err := folders.Create(ctx, filedrive.NewFolder{Name: "older", OwnerID: owner.ID})
	require.NoError(t, err)
	newer, err := folders.Create(ctx, filedrive.NewFolder{Name: "newer", OwnerID: owner.ID})
	require.NoError(t, err)

	// Pin the rows half a second apart, the older one on a whole second.
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, row := range []struct {
		id uuid.UUID
		ts time.Time
	}{
		{older.ID, at},
		{newer.ID, at.Add(500 * time.Millisecond)},
	} {
		_, err := db.ExecContext(ctx,
			`UPDATE folders SET created_at = ? WHERE id = ?`,
			row.ts.Format(timeLayout), row.id.String())
		require.NoError(t, err)
	}

	listed, err := folders.ListByParent(ctx, owner.ID, nil)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "newer", listed[0].Name)
	assert.Equal(t, "older", listed[1].Name)
}
