package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filevault",
	Short:   "File storage service backed by an S3-compatible object store",
	Long: `Filevault is a file storage service that keeps blobs in an
S3-compatible object store and metadata in SQLite or PostgreSQL. It serves
a JSON API for uploads, listing, bulk delete, and zip archive downloads.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if cf, _ := cmd.Flags().GetString("config"); cf != "" {
			configFiles = append(configFiles, cf)
		}

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
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: FILEVAULT_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: FILEVAULT_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("s3-bucket", "", "object store bucket (env: FILEVAULT_S3_BUCKET)")
	rootCmd.PersistentFlags().String("s3-region", "", "object store region (env: FILEVAULT_S3_REGION)")
	rootCmd.PersistentFlags().String("jwt-secret", "", "JWT signing secret (env: FILEVAULT_AUTH_JWT_SECRET)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
