package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmalhotra/filedrive"
	"github.com/jmalhotra/filedrive/auth"
	"github.com/jmalhotra/filedrive/blob"
	"github.com/jmalhotra/filedrive/config"
	"github.com/jmalhotra/filedrive/database"
	"github.com/jmalhotra/filedrive/disk"
	filedrivehttp "github.com/jmalhotra/filedrive/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the filedrive HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 3000, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repos, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	var (
		diskStore filedrive.DiskStore
		blobStore filedrive.BlobStore
		uploads   filedrive.LocatorKind
	)

	// The disk store is always available so downloads of existing local
	// records keep working when uploads move to the blob backend.
	if err = os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}
	defer func() { _ = root.Close() }()

	diskStore = disk.NewStore(root)

	switch cfg.Storage.Backend {
	case "disk":
		uploads = filedrive.LocatorLocal
	case "s3":
		uploads = filedrive.LocatorRemote
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	if cfg.Blob.Endpoint != "" {
		blobStore, err = blob.NewStore(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("create blob store: %w", err)
		}
		slog.Info("connected to blob store", "endpoint", cfg.Blob.Endpoint, "bucket", cfg.Blob.Bucket)
	}

	driveService, err := filedrive.NewDriveService(repos.Folders, repos.Files, diskStore, blobStore, filedrive.DriveConfig{
		Uploads:        uploads,
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create drive service: %w", err)
	}

	userService := filedrive.NewUserService(repos.Users)

	sessions := auth.NewSessions(
		[]byte(cfg.Auth.Secret),
		time.Duration(cfg.Auth.SessionValidity)*time.Second,
	)

	handlerConfig := filedrivehttp.HandlerConfig{
		MaxUploadSize: cfg.Server.MaxUploadSize,
		CORS:          cfg.CORS,
	}

	handler := filedrivehttp.NewHandler(&handlerConfig, driveService, userService, sessions)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "uploads", uploads)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
