// Package database connects the configured metadata backend and hands back
// the entity repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmalhotra/filedrive"
	"github.com/jmalhotra/filedrive/database/postgres"
	"github.com/jmalhotra/filedrive/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Tables holds the entity table names
	Tables filedrive.Tables `mapstructure:"tables"`
}

// Repos bundles the three entity repositories one backend provides.
type Repos struct {
	Users   filedrive.UserRepo
	Folders filedrive.FolderRepo
	Files   filedrive.FileRepo
}

// Connect establishes a connection to the configured database backend,
// runs migrations, validates that the schema landed, and returns the
// repositories. The returned cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (Repos, func(), error) {
	if err := cfg.Tables.Validate(); err != nil {
		return Repos{}, nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, cfg.Tables)
	default:
		return Repos{}, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, dsn string, tables filedrive.Tables) (Repos, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return Repos{}, nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection keeps writes serialized and makes :memory: databases
	// visible across the pool.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = sqlite.Migrate(ctx, db, tables); err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = sqlite.ValidateSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	users, folders, files, err := sqlite.NewRepos(db, tables)
	if err != nil {
		_ = db.Close()
		return Repos{}, nil, fmt.Errorf("create sqlite repos: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return Repos{Users: users, Folders: folders, Files: files}, cleanup, nil
}

func connectPostgres(ctx context.Context, dsn string, tables filedrive.Tables) (Repos, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return Repos{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = postgres.Migrate(ctx, pool, tables); err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = postgres.ValidateSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	users, folders, files, err := postgres.NewRepos(pool, tables)
	if err != nil {
		pool.Close()
		return Repos{}, nil, fmt.Errorf("create postgres repos: %w", err)
	}

	return Repos{Users: users, Folders: folders, Files: files}, pool.Close, nil
}
