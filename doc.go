// Package filedrive implements a personal file-storage service: users
// organize uploaded objects into a per-user folder hierarchy, with the
// object bytes held either on local disk or by a remote blob store behind
// one logical file entity.
//
// # Key Components
//
//   - DriveService: folder tree, file records, and the composed drive view,
//     with strict ownership scoping on every operation
//   - UserService: registration and credential verification
//   - DiskStore / BlobStore: the two storage backend adapters a file's
//     tagged Locator dispatches to
//   - UserRepo / FolderRepo / FileRepo: metadata persistence interfaces
//     (PostgreSQL, SQLite)
//
// # Ownership Scoping
//
// Every operation takes the requesting principal's id explicitly. An entity
// that exists but is owned by someone else is indistinguishable from one
// that does not exist: both are ErrNotFound.
//
// # Storage Locators
//
// A file record carries a tagged Locator decided at creation time:
//
//   - LocatorLocal: path on the local disk backend
//   - LocatorRemote: URL and key in the remote blob store
//   - LocatorNone: placeholder record created without bytes
//
// The kind determines which adapter services retrieval and deletion for
// that record; it is never re-derived from the stored address.
//
// See the http package for the REST surface and the database package for
// the metadata backends.
package filedrive
