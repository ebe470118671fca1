package filedrive

import "errors"

var (
	// ErrNotFound is returned when an entity is absent or not owned by the
	// requesting principal. The two cases are deliberately merged so callers
	// cannot probe for the existence of other users' entities.
	ErrNotFound = errors.New("not found")
	// ErrNotFoundOnDisk is returned when a file record exists but its local
	// backend object has gone missing.
	ErrNotFoundOnDisk = errors.New("not found on disk")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidParent is returned when a parent folder does not exist or is
	// not owned by the requesting principal.
	ErrInvalidParent = errors.New("invalid parent folder")
	// ErrConflict is returned when a unique constraint is violated (duplicate username)
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBackendUnavailable is returned when a remote storage call failed or timed out
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
