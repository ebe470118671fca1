package filedrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskStore is the local, path-addressed storage backend.
//
// Place writes the object's bytes under an owner-scoped directory and
// returns a LocatorLocal locator plus the byte count. Open retrieves the
// bytes for a previously placed locator, returning ErrNotFoundOnDisk when
// the path no longer exists. Remove is idempotent: removing a missing
// object is not an error.
type DiskStore interface {
	Place(ctx context.Context, ownerID uuid.UUID, name string, content io.Reader) (Locator, int64, error)
	Open(ctx context.Context, loc Locator) (io.ReadSeekCloser, error)
	Remove(ctx context.Context, loc Locator) error
}

// BlobStore is the remote, URL-addressed storage backend.
//
// Place uploads the object's bytes into an owner-scoped logical namespace
// and returns a LocatorRemote locator plus the byte count; it enforces the
// backend's extension allow-list and size cap, and reports
// ErrBackendUnavailable when the remote call fails or times out.
// DownloadURL produces a short-lived URL that forces attachment
// disposition. Remove deletes by remote key.
type BlobStore interface {
	Place(ctx context.Context, ownerID uuid.UUID, name string, content io.Reader) (Locator, int64, error)
	DownloadURL(ctx context.Context, loc Locator) (string, error)
	Remove(ctx context.Context, loc Locator) error
}

// DriveService implements the ownership-scoped drive operations: the folder
// tree, file records coordinated with their storage backend, and the
// composed drive view.
//
// Every operation takes the requesting principal's id explicitly; there is
// no ambient request state. An entity that exists but belongs to another
// principal is reported as ErrNotFound.
type DriveService struct {
	folders        FolderRepo
	files          FileRepo
	disk           DiskStore
	blob           BlobStore
	uploads        LocatorKind
	cleanupTimeout time.Duration
	log            *slog.Logger
}

// DriveConfig holds configuration options for DriveService.
type DriveConfig struct {
	// Uploads selects which backend services new uploads: LocatorLocal or
	// LocatorRemote. Existing records keep the kind they were created with.
	Uploads LocatorKind
	// CleanupTimeout bounds compensating backend deletes (default: 30s).
	CleanupTimeout time.Duration
}

func NewDriveService(folders FolderRepo, files FileRepo, disk DiskStore, blob BlobStore, cfg DriveConfig) (*DriveService, error) {
	switch cfg.Uploads {
	case LocatorLocal:
		if disk == nil {
			return nil, errors.New("new drive service: local uploads require a disk store")
		}
	case LocatorRemote:
		if blob == nil {
			return nil, errors.New("new drive service: remote uploads require a blob store")
		}
	default:
		return nil, fmt.Errorf("new drive service: invalid upload backend: %s", cfg.Uploads)
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &DriveService{
		folders:        folders,
		files:          files,
		disk:           disk,
		blob:           blob,
		uploads:        cfg.Uploads,
		cleanupTimeout: cleanupTimeout,
		log:            slog.Default(),
	}, nil
}

// mayAccess is the ownership predicate: a principal may touch an entity
// only when it owns it.
func mayAccess(principalID, entityOwnerID uuid.UUID) bool {
	return principalID == entityOwnerID
}

// CreateFolder creates a folder owned by ownerID. A nil parentID creates a
// root folder. Returns ErrInvalidParent when the parent does not exist or
// belongs to another owner, ErrInvalidInput when the name is empty.
func (s *DriveService) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		return Folder{}, fmt.Errorf("create folder: %w: name cannot be empty", ErrInvalidInput)
	}

	if parentID != nil {
		parent, err := s.folders.Get(ctx, *parentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Folder{}, fmt.Errorf("create folder: %w", ErrInvalidParent)
			}
			return Folder{}, fmt.Errorf("create folder: resolve parent: %w", err)
		}
		if !mayAccess(ownerID, parent.OwnerID) {
			return Folder{}, fmt.Errorf("create folder: %w", ErrInvalidParent)
		}
	}

	folder, err := s.folders.Create(ctx, NewFolder{Name: name, OwnerID: ownerID, ParentID: parentID})
	if err != nil {
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}

	return folder, nil
}

// GetFolder resolves a folder owned by ownerID. Absent and not-owned both
// yield ErrNotFound.
func (s *DriveService) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}

	folder, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	if !mayAccess(ownerID, folder.OwnerID) {
		return Folder{}, fmt.Errorf("get folder: %w", ErrNotFound)
	}

	return folder, nil
}

// ListChildren returns the subfolders and files at exactly one level of the
// owner's tree. A nil parentID lists the root. When parentID is set, it is
// resolved and ownership-checked first.
func (s *DriveService) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Folder, []File, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("list children: %w", err)
	}

	if parentID != nil {
		if _, err := s.GetFolder(ctx, ownerID, *parentID); err != nil {
			return nil, nil, fmt.Errorf("list children: %w", err)
		}
	}

	subfolders, err := s.folders.ListByParent(ctx, ownerID, parentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list children: %w", err)
	}

	files, err := s.files.ListByFolder(ctx, ownerID, parentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list children: %w", err)
	}

	return subfolders, files, nil
}

// ComposeView assembles the drive listing for one tree level. When folderID
// is set it is resolved and ownership-checked first; ErrNotFound
// short-circuits the whole call.
func (s *DriveService) ComposeView(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) (DriveView, error) {
	if err := ctx.Err(); err != nil {
		return DriveView{}, fmt.Errorf("compose view: %w", err)
	}

	var scope *Folder
	if folderID != nil {
		folder, err := s.GetFolder(ctx, ownerID, *folderID)
		if err != nil {
			return DriveView{}, fmt.Errorf("compose view: %w", err)
		}
		scope = &folder
	}

	subfolders, files, err := s.ListChildren(ctx, ownerID, folderID)
	if err != nil {
		return DriveView{}, fmt.Errorf("compose view: %w", err)
	}

	return DriveView{Folder: scope, Subfolders: subfolders, Files: files}, nil
}

// CreateFile stores an uploaded object and creates its metadata record.
//
// The configured upload backend places the bytes first; the metadata record
// is persisted only after a successful placement. If the metadata write
// fails, the placed object is deleted again using a background context with
// the configured cleanup timeout so the compensation completes even when
// the request context is already cancelled. A nil folderID places the file
// at the drive root; a set folderID is resolved and ownership-checked,
// failing with ErrInvalidParent.
func (s *DriveService) CreateFile(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string, content io.Reader) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		return File{}, fmt.Errorf("create file: %w: name cannot be empty", ErrInvalidInput)
	}
	if content == nil {
		return File{}, fmt.Errorf("create file: %w: content cannot be nil", ErrInvalidInput)
	}

	if err := s.checkParentFolder(ctx, ownerID, folderID); err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}

	var (
		loc  Locator
		size int64
		err  error
	)
	switch s.uploads {
	case LocatorLocal:
		loc, size, err = s.disk.Place(ctx, ownerID, name, content)
	case LocatorRemote:
		loc, size, err = s.blob.Place(ctx, ownerID, name, content)
	}
	if err != nil {
		return File{}, fmt.Errorf("create file %s: place failed: %w", name, err)
	}

	file, err := s.files.Create(ctx, NewFile{
		Name:     name,
		OwnerID:  ownerID,
		FolderID: folderID,
		Size:     size,
		MimeType: detectMimeType(name),
		Locator:  loc,
	})
	if err != nil {
		// The request context may already be cancelled; the compensating
		// delete runs on its own bounded context.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if rmErr := s.removeBackendObject(cleanupCtx, loc); rmErr != nil {
			s.log.Error("orphaned backend object after failed metadata write",
				"kind", loc.Kind, "path", loc.Path, "key", loc.RemoteKey, "err", rmErr)
		}
		return File{}, fmt.Errorf("create file %s: metadata write failed: %w", name, err)
	}

	return file, nil
}

// CreatePlaceholder creates a file record without any stored bytes: a
// sentinel empty locator and zero size. This legacy manual-entry mode is an
// explicit operation, never inferred from a missing upload.
func (s *DriveService) CreatePlaceholder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("create placeholder: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		return File{}, fmt.Errorf("create placeholder: %w: name cannot be empty", ErrInvalidInput)
	}

	if err := s.checkParentFolder(ctx, ownerID, folderID); err != nil {
		return File{}, fmt.Errorf("create placeholder: %w", err)
	}

	file, err := s.files.Create(ctx, NewFile{
		Name:     name,
		OwnerID:  ownerID,
		FolderID: folderID,
		Size:     0,
		MimeType: detectMimeType(name),
		Locator:  Locator{Kind: LocatorNone},
	})
	if err != nil {
		return File{}, fmt.Errorf("create placeholder: %w", err)
	}

	return file, nil
}

// GetFile resolves a file record owned by ownerID. Absent and not-owned
// both yield ErrNotFound.
func (s *DriveService) GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, fmt.Errorf("get file: %w", err)
	}

	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return File{}, fmt.Errorf("get file: %w", err)
	}
	if !mayAccess(ownerID, file.OwnerID) {
		return File{}, fmt.Errorf("get file: %w", ErrNotFound)
	}

	return file, nil
}

// DeleteFile removes a file record immediately and irreversibly. The backend
// object is removed best-effort first: a failed backend delete is logged
// and never blocks the metadata delete, whose success defines "deleted" to
// the caller.
func (s *DriveService) DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	file, err := s.GetFile(ctx, ownerID, fileID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if rmErr := s.removeBackendObject(ctx, file.Locator); rmErr != nil {
		s.log.Warn("backend cleanup failed, deleting metadata anyway",
			"file_id", file.ID, "kind", file.Locator.Kind, "err", rmErr)
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	return nil
}

// DownloadTarget resolves how a file's bytes should be served: a redirect
// URL for remote locators (presigned to force attachment disposition) or a
// local byte stream, failing with ErrNotFoundOnDisk when the local path no
// longer exists. Placeholder records have no bytes and yield ErrNotFound.
func (s *DriveService) DownloadTarget(ctx context.Context, ownerID, fileID uuid.UUID) (DownloadInstruction, error) {
	if err := ctx.Err(); err != nil {
		return DownloadInstruction{}, fmt.Errorf("download target: %w", err)
	}

	file, err := s.GetFile(ctx, ownerID, fileID)
	if err != nil {
		return DownloadInstruction{}, fmt.Errorf("download target: %w", err)
	}

	switch file.Locator.Kind {
	case LocatorRemote:
		if s.blob == nil {
			return DownloadInstruction{}, fmt.Errorf("download target %s: no blob store configured: %w", file.ID, ErrBackendUnavailable)
		}
		url, err := s.blob.DownloadURL(ctx, file.Locator)
		if err != nil {
			return DownloadInstruction{}, fmt.Errorf("download target %s: %w", file.ID, err)
		}
		return DownloadInstruction{RedirectURL: url, Name: file.Name, MimeType: file.MimeType, Size: file.Size}, nil
	case LocatorLocal:
		if s.disk == nil {
			return DownloadInstruction{}, fmt.Errorf("download target %s: no disk store configured: %w", file.ID, ErrBackendUnavailable)
		}
		content, err := s.disk.Open(ctx, file.Locator)
		if err != nil {
			return DownloadInstruction{}, fmt.Errorf("download target %s: %w", file.ID, err)
		}
		return DownloadInstruction{Content: content, Name: file.Name, MimeType: file.MimeType, Size: file.Size}, nil
	default:
		return DownloadInstruction{}, fmt.Errorf("download target %s: %w", file.ID, ErrNotFound)
	}
}

func (s *DriveService) checkParentFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.GetFolder(ctx, ownerID, *folderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidParent
		}
		return err
	}
	return nil
}

// removeBackendObject dispatches on the locator kind. Kinds never mix for
// one record; LocatorNone has nothing to remove.
func (s *DriveService) removeBackendObject(ctx context.Context, loc Locator) error {
	switch loc.Kind {
	case LocatorLocal:
		if s.disk == nil {
			return fmt.Errorf("remove backend object: no disk store configured: %w", ErrBackendUnavailable)
		}
		return s.disk.Remove(ctx, loc)
	case LocatorRemote:
		if s.blob == nil {
			return fmt.Errorf("remove backend object: no blob store configured: %w", ErrBackendUnavailable)
		}
		return s.blob.Remove(ctx, loc)
	case LocatorNone:
		return nil
	default:
		return fmt.Errorf("remove backend object: unknown locator kind %q", loc.Kind)
	}
}
