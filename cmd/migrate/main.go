package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/nsut-attendance/backend/internal/config"
	constants "github.com/nsut-attendance/backend/internal/constants"
	"github.com/nsut-attendance/backend/internal/logger"
	"github.com/nsut-attendance/backend/migrations"
	"github.com/nsut-attendance/backend/pkg/migrate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	config.LoadEnv()
	logger.Init(config.GetEnv(constants.LOG_LEVEL, "info"))
	ctx := context.Background()

	connectionString := config.GetEnv(constants.DATABASE_URL)
	if connectionString == "" {
		logger.LogError("DATABASE_URL environment variable is not set", nil)
		os.Exit(1)
	}

	var source fs.FS = migrations.FS
	if dir := config.GetEnv(constants.MIGRATIONS_DIR); dir != "" {
		source = os.DirFS(dir)
		logger.LogInfo("Using migrations from directory", "dir", dir)
	}

	migrator, err := migrate.NewMigrator(ctx, connectionString, source)
	if err != nil {
		logger.LogError("Failed to create migrator", err)
		os.Exit(1)
	}
	defer migrator.Close(ctx)

	switch command {
	case "up":
		err = runUp(ctx, migrator)
	case "down":
		err = runDown(ctx, migrator)
	case "steps":
		err = runSteps(ctx, migrator, os.Args[2:])
	case "version", "status":
		err = runVersion(ctx, migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.LogError("Migration command failed", err, "command", command)
		migrator.Close(ctx)
		os.Exit(1)
	}
}

func runUp(ctx context.Context, migrator *migrate.Migrator) error {
	logger.LogInfo("Applying migrations")
	if err := migrator.Up(ctx); err != nil {
		return err
	}
	return runVersion(ctx, migrator)
}

func runDown(ctx context.Context, migrator *migrate.Migrator) error {
	logger.LogInfo("Rolling back one migration")
	if err := migrator.Down(ctx); err != nil {
		return err
	}
	return runVersion(ctx, migrator)
}

func runSteps(ctx context.Context, migrator *migrate.Migrator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("'steps' requires a number argument")
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", args[0], err)
	}

	applied, err := migrator.Steps(ctx, steps)
	logger.LogInfo("Steps executed", "requested", steps, "applied", applied)
	if err != nil {
		return err
	}
	return runVersion(ctx, migrator)
}

func runVersion(ctx context.Context, migrator *migrate.Migrator) error {
	version, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if version == migrate.NoVersion {
		fmt.Println("Current migration version: none")
		return nil
	}
	fmt.Printf("Current migration version: %d\n", version)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stdout, `Usage: migrate <command>

Commands:
  up                  Apply all pending migrations
  down                Roll back the last applied migration
  steps <number>      Apply (positive) or roll back (negative) n migrations
  version, status     Show the current migration version
  help                Show this help message

Environment Variables:
  %-20s Database connection URL (required)
  %-20s Directory of .sql files; defaults to the embedded set
`, constants.DATABASE_URL, constants.MIGRATIONS_DIR)
}
