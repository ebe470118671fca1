package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmalhotra/filedrive"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type tableMigration struct {
	tableName string
	up        func(ctx context.Context, db *sql.DB) error
	down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations, parents before children.
func getTableMigrations(tables filedrive.Tables) []tableMigration {
	return []tableMigration{
		{tableName: tables.Users, up: createUsersTable(tables.Users), down: dropTable(tables.Users)},
		{tableName: tables.Folders, up: createFoldersTable(tables.Folders, tables.Users), down: dropTable(tables.Folders)},
		{tableName: tables.Files, up: createFilesTable(tables.Files, tables.Users, tables.Folders), down: dropTable(tables.Files)},
	}
}

func Migrate(ctx context.Context, db *sql.DB, tables filedrive.Tables) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.tableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables filedrive.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.tableName, err)
		}
	}

	return nil
}

func createUsersTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at TEXT NOT NULL
			)
		`, quoteIdentifier(tableName))

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		return nil
	}
}

func createFoldersTable(tableName, usersTable string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				owner_id TEXT NOT NULL REFERENCES %s (id),
				parent_id TEXT REFERENCES %s (id),
				created_at TEXT NOT NULL
			)
		`, quotedTable, quoteIdentifier(usersTable), quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, parent_id, created_at)
		`, quoteIdentifier(fmt.Sprintf("idx_%s_owner_parent", tableName)), quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index owner_parent: %w", err)
		}

		return nil
	}
}

func createFilesTable(tableName, usersTable, foldersTable string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				owner_id TEXT NOT NULL REFERENCES %s (id),
				folder_id TEXT REFERENCES %s (id),
				size INTEGER NOT NULL,
				mime_type TEXT NOT NULL,
				storage_kind TEXT NOT NULL,
				storage_path TEXT NOT NULL DEFAULT '',
				storage_url TEXT NOT NULL DEFAULT '',
				storage_remote_key TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)
		`, quotedTable, quoteIdentifier(usersTable), quoteIdentifier(foldersTable))

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, folder_id, created_at)
		`, quoteIdentifier(fmt.Sprintf("idx_%s_owner_folder", tableName)), quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index owner_folder: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName))

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}

// ValidateSchema checks that every configured table exists after migration.
func ValidateSchema(ctx context.Context, db *sql.DB, tables filedrive.Tables) error {
	for _, tableName := range []string{tables.Users, tables.Folders, tables.Files} {
		exists, err := tableExists(ctx, db, tableName)
		if err != nil {
			return fmt.Errorf("validate schema %s: %w", tableName, err)
		}
		if !exists {
			return fmt.Errorf("validate schema: table %s does not exist", tableName)
		}
	}
	return nil
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}
