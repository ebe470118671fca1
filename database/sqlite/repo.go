// Package sqlite implements the metadata repositories using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmalhotra/filedrive"
)

// NewRepos validates the table names and returns the three repositories
// sharing one connection.
func NewRepos(db *sql.DB, tables filedrive.Tables) (*UserRepo, *FolderRepo, *FileRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("new repos: %w", err)
	}

	return &UserRepo{db: db, tableName: tables.Users},
		&FolderRepo{db: db, tableName: tables.Folders},
		&FileRepo{db: db, tableName: tables.Files},
		nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullableID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func scanID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func scanNullableID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// timeLayout keeps the fractional seconds fixed-width. Timestamps are
// stored as text and ordered lexicographically, so the encoding must sort
// the same as the instants; RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// UserRepo persists users.
type UserRepo struct {
	db        *sql.DB
	tableName string
}

func (r *UserRepo) Create(ctx context.Context, u filedrive.NewUser) (filedrive.User, error) {
	newID := uuid.New()
	createdAt := now()

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, username, first_name, last_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		newID.String(), u.Username, u.FirstName, u.LastName, u.PasswordHash, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return filedrive.User{}, fmt.Errorf("create user: %w", filedrive.ErrConflict)
		}
		return filedrive.User{}, fmt.Errorf("create user: %w", err)
	}

	created, _ := scanTime(createdAt)
	return filedrive.User{
		ID:           newID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    created,
	}, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (filedrive.User, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, username, first_name, last_name, password_hash, created_at
		FROM %s WHERE id = ?`, r.tableName)

	return r.scanUser(r.db.QueryRowContext(ctx, query, id.String()))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (filedrive.User, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, username, first_name, last_name, password_hash, created_at
		FROM %s WHERE username = ?`, r.tableName)

	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepo) scanUser(row *sql.Row) (filedrive.User, error) {
	var u filedrive.User
	var idStr, createdAt string

	err := row.Scan(&idStr, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filedrive.User{}, filedrive.ErrNotFound
		}
		return filedrive.User{}, fmt.Errorf("get user: %w", err)
	}

	if u.ID, err = scanID(idStr); err != nil {
		return filedrive.User{}, fmt.Errorf("get user: parse uuid: %w", err)
	}
	if u.CreatedAt, err = scanTime(createdAt); err != nil {
		return filedrive.User{}, fmt.Errorf("get user: parse created_at: %w", err)
	}

	return u, nil
}

// FolderRepo persists the folder hierarchy.
type FolderRepo struct {
	db        *sql.DB
	tableName string
}

func (r *FolderRepo) Create(ctx context.Context, f filedrive.NewFolder) (filedrive.Folder, error) {
	newID := uuid.New()
	createdAt := now()

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, owner_id, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		newID.String(), f.Name, f.OwnerID.String(), nullableID(f.ParentID), createdAt,
	)
	if err != nil {
		return filedrive.Folder{}, fmt.Errorf("create folder: %w", err)
	}

	created, _ := scanTime(createdAt)
	return filedrive.Folder{
		ID:        newID,
		Name:      f.Name,
		OwnerID:   f.OwnerID,
		ParentID:  f.ParentID,
		CreatedAt: created,
	}, nil
}

func (r *FolderRepo) Get(ctx context.Context, id uuid.UUID) (filedrive.Folder, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, owner_id, parent_id, created_at
		FROM %s WHERE id = ?`, r.tableName)

	var f filedrive.Folder
	var idStr, ownerStr, createdAt string
	var parent sql.NullString

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&idStr, &f.Name, &ownerStr, &parent, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filedrive.Folder{}, filedrive.ErrNotFound
		}
		return filedrive.Folder{}, fmt.Errorf("get folder: %w", err)
	}

	if err := scanFolderFields(&f, idStr, ownerStr, parent, createdAt); err != nil {
		return filedrive.Folder{}, fmt.Errorf("get folder: %w", err)
	}

	return f, nil
}

func (r *FolderRepo) ListByParent(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]filedrive.Folder, error) {
	var query string
	var args []any

	if parentID == nil {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT id, name, owner_id, parent_id, created_at
			FROM %s WHERE owner_id = ? AND parent_id IS NULL
			ORDER BY created_at DESC, id DESC`, r.tableName)
		args = []any{ownerID.String()}
	} else {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT id, name, owner_id, parent_id, created_at
			FROM %s WHERE owner_id = ? AND parent_id = ?
			ORDER BY created_at DESC, id DESC`, r.tableName)
		args = []any{ownerID.String(), parentID.String()}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	folders := make([]filedrive.Folder, 0)
	for rows.Next() {
		var f filedrive.Folder
		var idStr, ownerStr, createdAt string
		var parent sql.NullString

		if err := rows.Scan(&idStr, &f.Name, &ownerStr, &parent, &createdAt); err != nil {
			return nil, fmt.Errorf("list folders: scan: %w", err)
		}
		if err := scanFolderFields(&f, idStr, ownerStr, parent, createdAt); err != nil {
			return nil, fmt.Errorf("list folders: %w", err)
		}

		folders = append(folders, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: rows: %w", err)
	}

	return folders, nil
}

func scanFolderFields(f *filedrive.Folder, idStr, ownerStr string, parent sql.NullString, createdAt string) error {
	var err error
	if f.ID, err = scanID(idStr); err != nil {
		return fmt.Errorf("parse uuid: %w", err)
	}
	if f.OwnerID, err = scanID(ownerStr); err != nil {
		return fmt.Errorf("parse owner uuid: %w", err)
	}
	if f.ParentID, err = scanNullableID(parent); err != nil {
		return fmt.Errorf("parse parent uuid: %w", err)
	}
	if f.CreatedAt, err = scanTime(createdAt); err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	return nil
}

// FileRepo persists file metadata records.
type FileRepo struct {
	db        *sql.DB
	tableName string
}

func (r *FileRepo) Create(ctx context.Context, f filedrive.NewFile) (filedrive.File, error) {
	if err := f.Locator.Validate(); err != nil {
		return filedrive.File{}, fmt.Errorf("create file: %w", err)
	}

	newID := uuid.New()
	createdAt := now()

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, owner_id, folder_id, size, mime_type,
			storage_kind, storage_path, storage_url, storage_remote_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		newID.String(), f.Name, f.OwnerID.String(), nullableID(f.FolderID), f.Size, f.MimeType,
		string(f.Locator.Kind), f.Locator.Path, f.Locator.URL, f.Locator.RemoteKey, createdAt,
	)
	if err != nil {
		return filedrive.File{}, fmt.Errorf("create file: %w", err)
	}

	created, _ := scanTime(createdAt)
	return filedrive.File{
		ID:        newID,
		Name:      f.Name,
		OwnerID:   f.OwnerID,
		FolderID:  f.FolderID,
		Size:      f.Size,
		MimeType:  f.MimeType,
		Locator:   f.Locator,
		CreatedAt: created,
	}, nil
}

func (r *FileRepo) Get(ctx context.Context, id uuid.UUID) (filedrive.File, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, owner_id, folder_id, size, mime_type,
			storage_kind, storage_path, storage_url, storage_remote_key, created_at
		FROM %s WHERE id = ?`, r.tableName)

	var f filedrive.File
	var idStr, ownerStr, kind, createdAt string
	var folder sql.NullString

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &f.Name, &ownerStr, &folder, &f.Size, &f.MimeType,
		&kind, &f.Locator.Path, &f.Locator.URL, &f.Locator.RemoteKey, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filedrive.File{}, filedrive.ErrNotFound
		}
		return filedrive.File{}, fmt.Errorf("get file: %w", err)
	}

	if err := scanFileFields(&f, idStr, ownerStr, folder, kind, createdAt); err != nil {
		return filedrive.File{}, fmt.Errorf("get file: %w", err)
	}

	return f, nil
}

func (r *FileRepo) ListByFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]filedrive.File, error) {
	var query string
	var args []any

	if folderID == nil {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT id, name, owner_id, folder_id, size, mime_type,
				storage_kind, storage_path, storage_url, storage_remote_key, created_at
			FROM %s WHERE owner_id = ? AND folder_id IS NULL
			ORDER BY created_at DESC, id DESC`, r.tableName)
		args = []any{ownerID.String()}
	} else {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT id, name, owner_id, folder_id, size, mime_type,
				storage_kind, storage_path, storage_url, storage_remote_key, created_at
			FROM %s WHERE owner_id = ? AND folder_id = ?
			ORDER BY created_at DESC, id DESC`, r.tableName)
		args = []any{ownerID.String(), folderID.String()}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]filedrive.File, 0)
	for rows.Next() {
		var f filedrive.File
		var idStr, ownerStr, kind, createdAt string
		var folder sql.NullString

		if err := rows.Scan(
			&idStr, &f.Name, &ownerStr, &folder, &f.Size, &f.MimeType,
			&kind, &f.Locator.Path, &f.Locator.URL, &f.Locator.RemoteKey, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("list files: scan: %w", err)
		}
		if err := scanFileFields(&f, idStr, ownerStr, folder, kind, createdAt); err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}

		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: rows: %w", err)
	}

	return files, nil
}

func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tableName) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete file: %w", filedrive.ErrNotFound)
	}

	return nil
}

func scanFileFields(f *filedrive.File, idStr, ownerStr string, folder sql.NullString, kind, createdAt string) error {
	var err error
	if f.ID, err = scanID(idStr); err != nil {
		return fmt.Errorf("parse uuid: %w", err)
	}
	if f.OwnerID, err = scanID(ownerStr); err != nil {
		return fmt.Errorf("parse owner uuid: %w", err)
	}
	if f.FolderID, err = scanNullableID(folder); err != nil {
		return fmt.Errorf("parse folder uuid: %w", err)
	}
	if f.CreatedAt, err = scanTime(createdAt); err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}

	f.Locator.Kind = filedrive.LocatorKind(kind)
	if !f.Locator.Kind.IsValid() {
		return fmt.Errorf("unknown storage kind %q", kind)
	}

	return nil
}
