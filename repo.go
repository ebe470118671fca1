package filedrive

import (
	"context"

	"github.com/google/uuid"
)

// NewUser carries the fields needed to persist a registration.
type NewUser struct {
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
}

// UserRepo manages user persistence. Usernames are unique; Create returns
// ErrConflict when the username is already taken.
type UserRepo interface {
	Create(ctx context.Context, u NewUser) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}

// NewFolder carries the fields needed to persist a folder.
type NewFolder struct {
	Name     string
	OwnerID  uuid.UUID
	ParentID *uuid.UUID
}

// FolderRepo manages the folder hierarchy. Get resolves by id regardless of
// owner; ownership scoping is the service's responsibility. ListByParent
// returns exactly one level of the tree (nil parentID lists the root),
// ordered by creation time descending with id as the tie-break.
//
// There is no delete or re-parent operation in the current surface; any
// future addition must keep a folder's owner immutable and reject moves
// that would make a folder its own ancestor.
type FolderRepo interface {
	Create(ctx context.Context, f NewFolder) (Folder, error)
	Get(ctx context.Context, id uuid.UUID) (Folder, error)
	ListByParent(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Folder, error)
}

// NewFile carries the fields needed to persist a file record.
type NewFile struct {
	Name     string
	OwnerID  uuid.UUID
	FolderID *uuid.UUID
	Size     int64
	MimeType string
	Locator  Locator
}

// FileRepo manages file metadata records. Get resolves by id regardless of
// owner; ownership scoping is the service's responsibility. ListByFolder
// mirrors FolderRepo.ListByParent's scoping and ordering. Delete returns
// ErrNotFound when the record is absent.
type FileRepo interface {
	Create(ctx context.Context, f NewFile) (File, error)
	Get(ctx context.Context, id uuid.UUID) (File, error)
	ListByFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
