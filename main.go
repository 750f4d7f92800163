package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nsut-attendance/backend/internal/auth"
	"github.com/nsut-attendance/backend/internal/config"
	"github.com/nsut-attendance/backend/internal/httpapi"
	"github.com/nsut-attendance/backend/internal/logger"
	"github.com/nsut-attendance/backend/migrations"
	"github.com/nsut-attendance/backend/pkg/attendance"
	"github.com/nsut-attendance/backend/pkg/db"
	"github.com/nsut-attendance/backend/pkg/department"
	"github.com/nsut-attendance/backend/pkg/migrate"
)

const shutdownTimeout = 15 * time.Second

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.LogError("Invalid configuration", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.LogError("Server stopped with error", err)
		os.Exit(1)
	}
	logger.LogInfo("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.AutoMigrate {
		if err := migrateUp(ctx, cfg); err != nil {
			return err
		}
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL, db.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		return err
	}
	defer database.Close()

	ledger := attendance.NewLedger(attendance.NewPGStore(database))
	directory := department.NewDirectory(database)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	api := httpapi.NewServer(ledger, directory, tokens, database, httpapi.Options{
		CORSOrigins:    cfg.CORSOrigins,
		LoginRateLimit: cfg.LoginRateLimit,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.LogInfo("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.LogInfo("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrateUp(ctx context.Context, cfg *config.Config) error {
	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}

	migrator, err := migrate.NewMigrator(ctx, cfg.DatabaseURL, source)
	if err != nil {
		return err
	}
	defer migrator.Close(ctx)

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}
	logger.LogInfo("Migrations applied", "version", version)
	return nil
}
