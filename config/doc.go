// Package config provides configuration loading and validation for filedrive.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEDRIVE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEDRIVE_ prefix:
//   - server.port → FILEDRIVE_SERVER_PORT
//   - database.type → FILEDRIVE_DATABASE_TYPE
//   - auth.secret → FILEDRIVE_AUTH_SECRET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and max_upload_size
//   - Service: cleanup_timeout for compensating backend deletes
//   - Database: type, DSN, and table names
//   - Storage: upload backend selection (disk/s3) and local path
//   - Blob: remote blob store endpoint, bucket, and credentials
//   - Auth: session token secret and validity
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Database type must be sqlite or postgres
//   - Storage backend must be disk or s3
//   - Log level must be debug, info, warn, or error
//
// Backend-specific settings (storage.path for disk, blob.endpoint and
// blob.bucket for s3) are required only when their backend is selected.
package config
