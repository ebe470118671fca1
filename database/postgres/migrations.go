package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmalhotra/filedrive"
)

// quoteIdentifier safely quotes a PostgreSQL identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type tableMigration struct {
	tableName string
	up        func(ctx context.Context, pool *pgxpool.Pool) error
	down      func(ctx context.Context, pool *pgxpool.Pool) error
}

// getTableMigrations returns all table migrations, parents before children.
func getTableMigrations(tables filedrive.Tables) []tableMigration {
	return []tableMigration{
		{tableName: tables.Users, up: createUsersTable(tables.Users), down: dropTable(tables.Users)},
		{tableName: tables.Folders, up: createFoldersTable(tables.Folders, tables.Users), down: dropTable(tables.Folders)},
		{tableName: tables.Files, up: createFilesTable(tables.Files, tables.Users, tables.Folders), down: dropTable(tables.Files)},
	}
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filedrive.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.tableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filedrive.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.tableName, err)
		}
	}

	return nil
}

func createUsersTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, quoteIdentifier(tableName))

		if _, err := pool.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		return nil
	}
}

func createFoldersTable(tableName, usersTable string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := quoteIdentifier(tableName)

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				owner_id UUID NOT NULL REFERENCES %s (id),
				parent_id UUID REFERENCES %s (id),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, quotedTable, quoteIdentifier(usersTable), quotedTable)

		if _, err := pool.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, parent_id, created_at)
		`, quoteIdentifier(fmt.Sprintf("idx_%s_owner_parent", tableName)), quotedTable)

		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index owner_parent: %w", err)
		}

		return nil
	}
}

func createFilesTable(tableName, usersTable, foldersTable string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := quoteIdentifier(tableName)

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				owner_id UUID NOT NULL REFERENCES %s (id),
				folder_id UUID REFERENCES %s (id),
				size BIGINT NOT NULL,
				mime_type TEXT NOT NULL,
				storage_kind TEXT NOT NULL,
				storage_path TEXT NOT NULL DEFAULT '',
				storage_url TEXT NOT NULL DEFAULT '',
				storage_remote_key TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, quotedTable, quoteIdentifier(usersTable), quoteIdentifier(foldersTable))

		if _, err := pool.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, folder_id, created_at)
		`, quoteIdentifier(fmt.Sprintf("idx_%s_owner_folder", tableName)), quotedTable)

		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index owner_folder: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName))

		_, err := pool.Exec(ctx, dropSQL)
		return err
	}
}

// ValidateSchema checks that every configured table exists after migration.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables filedrive.Tables) error {
	for _, tableName := range []string{tables.Users, tables.Folders, tables.Files} {
		exists, err := tableExists(ctx, pool, tableName)
		if err != nil {
			return fmt.Errorf("validate schema %s: %w", tableName, err)
		}
		if !exists {
			return fmt.Errorf("validate schema: table %s does not exist", tableName)
		}
	}
	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var name string
	query := `SELECT table_name FROM information_schema.tables WHERE table_name = $1`
	err := pool.QueryRow(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}
