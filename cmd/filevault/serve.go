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

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/auth"
	"github.com/sagarc03/filevault/config"
	"github.com/sagarc03/filevault/database"
	filevaulthttp "github.com/sagarc03/filevault/http"
	"github.com/sagarc03/filevault/s3blob"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the filevault HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("quota-cap", "", "per-user storage cap in bytes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stores, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	blob, err := s3blob.New(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("create blob store: %w", err)
	}
	slog.Info("connected to object store", "bucket", cfg.S3.Bucket, "region", cfg.S3.Region)

	fileSvc := filevault.NewService(blob, stores.Files, stores.Usage, filevault.ServiceConfig{
		URLTTL:         time.Duration(cfg.Service.URLTTL) * time.Second,
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	})

	quotaSvc := filevault.NewQuotaService(stores.Usage, stores.Files, cfg.Quota.CapBytes)

	authSvc, err := auth.NewService(stores.Users, auth.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  time.Duration(cfg.Auth.TokenTTL) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}

	keySvc := auth.NewAPIKeyService(stores.APIKeys, slog.Default())

	handlerConfig := filevaulthttp.HandlerConfig{
		MaxUploadBytes: cfg.Server.MaxUploadSize,
		CORS:           cfg.CORS,
	}

	handler := filevaulthttp.NewHandler(&handlerConfig, filevaulthttp.Deps{
		Files: fileSvc,
		Auth:  authSvc,
		Keys:  keySvc,
		Quota: quotaSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Multipart uploads and archive builds can run for minutes on slow
	// links, so the read and write deadlines are generous.
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
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

	slog.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
