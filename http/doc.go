// Package http provides the HTTP surface for the filedrive service.
//
// This package implements the account and drive routes on top of the root
// services, with cookie sessions and form-based input the way the service's
// browser clients post it.
//
// # Routes
//
//   - POST /register, POST /log-in, GET /log-out: account lifecycle
//   - GET /drive, GET /drive/{folderID}: the composed drive view
//   - POST /add-folder: create a folder at the root or under a parent
//   - POST /upload: multipart upload ("user-file" field) into a folder
//   - POST /add-file: create a placeholder record without bytes
//   - GET /file/{fileID}: one file's metadata
//   - GET /file/{fileID}/download: redirect (remote) or stream (local)
//   - POST /file/{fileID}/delete: delete a file record and its bytes
//
// # Authentication
//
// SessionMiddleware resolves the session cookie on every request and attaches
// the principal to the context. The drive and file routes sit behind
// RequireAuth, which redirects anonymous requests to /log-in. Handlers never
// distinguish "missing" from "not owned": both surface as 404.
//
// # Usage
//
// Create a handler with HandlerConfig:
//
//	handlerCfg := http.HandlerConfig{
//	    MaxUploadSize: 32 << 20,
//	}
//	handler := http.NewHandler(&handlerCfg, driveService, userService, sessions)
//	router := handler.Router()
//	http.ListenAndServe(":8080", router)
//
// The drive and users parameters must implement the DriveAPI and UserAPI
// interfaces.
package http
