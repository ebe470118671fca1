// Package postgres implements the metadata repositories using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmalhotra/filedrive"
)

// NewRepos validates the table names and returns the three repositories
// sharing one pool.
func NewRepos(pool *pgxpool.Pool, tables filedrive.Tables) (*UserRepo, *FolderRepo, *FileRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("new repos: %w", err)
	}

	return &UserRepo{pool: pool, tableName: tables.Users},
		&FolderRepo{pool: pool, tableName: tables.Folders},
		&FileRepo{pool: pool, tableName: tables.Files},
		nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UserRepo persists users.
type UserRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *UserRepo) Create(ctx context.Context, u filedrive.NewUser) (filedrive.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, first_name, last_name, password_hash, created_at
	`, r.tableName)

	var created filedrive.User
	err := r.pool.QueryRow(ctx, query, uuid.New(), u.Username, u.FirstName, u.LastName, u.PasswordHash).Scan(
		&created.ID, &created.Username, &created.FirstName, &created.LastName, &created.PasswordHash, &created.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return filedrive.User{}, fmt.Errorf("create user: %w", filedrive.ErrConflict)
		}
		return filedrive.User{}, fmt.Errorf("create user: %w", err)
	}

	return created, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (filedrive.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, first_name, last_name, password_hash, created_at
		FROM %s WHERE id = $1
	`, r.tableName)

	return r.getOne(ctx, query, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (filedrive.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, first_name, last_name, password_hash, created_at
		FROM %s WHERE username = $1
	`, r.tableName)

	return r.getOne(ctx, query, username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (filedrive.User, error) {
	var u filedrive.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filedrive.User{}, filedrive.ErrNotFound
		}
		return filedrive.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

// FolderRepo persists the folder hierarchy.
type FolderRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *FolderRepo) Create(ctx context.Context, f filedrive.NewFolder) (filedrive.Folder, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, owner_id, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, owner_id, parent_id, created_at
	`, r.tableName)

	var created filedrive.Folder
	err := r.pool.QueryRow(ctx, query, uuid.New(), f.Name, f.OwnerID, f.ParentID).Scan(
		&created.ID, &created.Name, &created.OwnerID, &created.ParentID, &created.CreatedAt,
	)
	if err != nil {
		return filedrive.Folder{}, fmt.Errorf("create folder: %w", err)
	}

	return created, nil
}

func (r *FolderRepo) Get(ctx context.Context, id uuid.UUID) (filedrive.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, parent_id, created_at
		FROM %s WHERE id = $1
	`, r.tableName)

	var f filedrive.Folder
	err := r.pool.QueryRow(ctx, query, id).Scan(&f.ID, &f.Name, &f.OwnerID, &f.ParentID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filedrive.Folder{}, filedrive.ErrNotFound
		}
		return filedrive.Folder{}, fmt.Errorf("get folder: %w", err)
	}

	return f, nil
}

func (r *FolderRepo) ListByParent(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]filedrive.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, parent_id, created_at
		FROM %s
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC, id DESC
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]filedrive.Folder, 0)
	for rows.Next() {
		var f filedrive.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.OwnerID, &f.ParentID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("list folders: scan: %w", err)
		}
		folders = append(folders, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: rows: %w", err)
	}

	return folders, nil
}

// FileRepo persists file metadata records.
type FileRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *FileRepo) Create(ctx context.Context, f filedrive.NewFile) (filedrive.File, error) {
	if err := f.Locator.Validate(); err != nil {
		return filedrive.File{}, fmt.Errorf("create file: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, owner_id, folder_id, size, mime_type,
			storage_kind, storage_path, storage_url, storage_remote_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, name, owner_id, folder_id, size, mime_type,
			storage_kind, storage_path, storage_url, storage_remote_key, created_at
	`, r.tableName)

	row := r.pool.QueryRow(ctx, query,
		uuid.New(), f.Name, f.OwnerID, f.FolderID, f.Size, f.MimeType,
		string(f.Locator.Kind), f.Locator.Path, f.Locator.URL, f.Locator.RemoteKey,
	)

	created, err := scanFile(row)
	if err != nil {
		return filedrive.File{}, fmt.Errorf("create file: %w", err)
	}

	return created, nil
}

func (r *FileRepo) Get(ctx context.Context, id uuid.UUID) (filedrive.File, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, folder_id, size, mime_type,
			storage_kind, storage_path, storage_url, storage_remote_key, created_at
		FROM %s WHERE id = $1
	`, r.tableName)

	f, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filedrive.File{}, filedrive.ErrNotFound
		}
		return filedrive.File{}, fmt.Errorf("get file: %w", err)
	}

	return f, nil
}

func (r *FileRepo) ListByFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]filedrive.File, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, folder_id, size, mime_type,
			storage_kind, storage_path, storage_url, storage_remote_key, created_at
		FROM %s
		WHERE owner_id = $1 AND folder_id IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC, id DESC
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]filedrive.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("list files: scan: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: rows: %w", err)
	}

	return files, nil
}

func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete file: %w", filedrive.ErrNotFound)
	}

	return nil
}

func scanFile(row pgx.Row) (filedrive.File, error) {
	var f filedrive.File
	var kind string

	err := row.Scan(
		&f.ID, &f.Name, &f.OwnerID, &f.FolderID, &f.Size, &f.MimeType,
		&kind, &f.Locator.Path, &f.Locator.URL, &f.Locator.RemoteKey, &f.CreatedAt,
	)
	if err != nil {
		return filedrive.File{}, err
	}

	f.Locator.Kind = filedrive.LocatorKind(kind)
	if !f.Locator.Kind.IsValid() {
		return filedrive.File{}, fmt.Errorf("unknown storage kind %q", kind)
	}

	return f, nil
}
