package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/config"
	"github.com/sagarc03/filevault/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Create or update the metadata schema in the configured database.
Migrations are idempotent and safe to run repeatedly.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	// Connect runs migrations as part of establishing the connection.
	_, closeDB, err := database.Connect(cmd.Context(), cfg.Database)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer closeDB()

	slog.Info("migration complete", "type", cfg.Database.Type)
	return nil
}
