package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmalhotra/filedrive/config"
)

var version = "dev"

var configFiles []string

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filedrive",
	Short:   "Personal file storage service",
	Long: `Filedrive is a personal file storage service with per-user
folder trees, backed by local disk or an S3-compatible blob store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "config file path(s), later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: FILEDRIVE_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: filedrive.db, env: FILEDRIVE_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-backend", "", "upload backend: disk, s3 (default: disk, env: FILEDRIVE_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("storage-path", "", "local storage directory (default: ./data, env: FILEDRIVE_STORAGE_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
