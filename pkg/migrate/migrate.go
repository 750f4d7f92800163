// Package migrate provides database migration functionality for PostgreSQL databases.
// It supports applying, rolling back, and stepping through migrations with transaction safety.
//
// Migrations are read from an fs.FS as pairs of files named
// NNNNNN_description.up.sql and NNNNNN_description.down.sql. Versions start at
// 0 and must be contiguous; version 0 creates the migrations table itself.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nsut-attendance/backend/internal/logger"
)

// NoVersion is reported when no migration has been applied yet.
const NoVersion = -1

// undefined_table
const pgUndefinedTable = "42P01"

type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

type Migrator struct {
	conn       *pgx.Conn
	migrations []Migration
}

func NewMigrator(ctx context.Context, connectionString string, source fs.FS) (*Migrator, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	migrations, err := Load(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	conn, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Migrator{
		conn:       conn,
		migrations: migrations,
	}, nil
}

func (m *Migrator) Close(ctx context.Context) error {
	return m.conn.Close(ctx)
}

// Load reads and validates every migration in the root of source.
func Load(source fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	maxVersion := NoVersion

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		baseName := entry.Name()
		var isUp bool
		switch {
		case strings.HasSuffix(baseName, ".up.sql"):
			isUp = true
		case strings.HasSuffix(baseName, ".down.sql"):
			isUp = false
		default:
			continue
		}

		if len(baseName) < 7 || baseName[6] != '_' {
			continue
		}
		version, err := strconv.Atoi(baseName[:6])
		if err != nil {
			continue
		}

		data, err := fs.ReadFile(source, baseName)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", baseName, err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version}
			byVersion[version] = mig
		}
		name := strings.TrimSuffix(strings.TrimSuffix(baseName[7:], ".up.sql"), ".down.sql")
		if mig.Name != "" && mig.Name != name {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, mig.Name, name)
		}
		mig.Name = name

		if isUp {
			mig.UpSQL = string(data)
		} else {
			mig.DownSQL = string(data)
		}

		if version > maxVersion {
			maxVersion = version
		}
	}

	if maxVersion == NoVersion {
		return nil, errors.New("no valid migration files found")
	}

	migrations := make([]Migration, 0, maxVersion+1)
	for version := 0; version <= maxVersion; version++ {
		mig, ok := byVersion[version]
		if !ok || strings.TrimSpace(mig.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d is missing up.sql file", version)
		}
		migrations = append(migrations, *mig)
	}

	return migrations, nil
}

// Statements splits migration SQL into individual statements.
func Statements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// GetCurrentVersion returns the highest applied version, or NoVersion.
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return NoVersion, fmt.Errorf("context cancelled: %w", err)
	}

	var version sql.NullInt64 // MAX() over an empty table is NULL
	err := m.conn.QueryRow(ctx, "SELECT MAX(version) FROM migrations").Scan(&version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
			return NoVersion, nil
		}
		return NoVersion, fmt.Errorf("failed to get current migration version: %w", err)
	}

	if !version.Valid {
		return NoVersion, nil
	}

	return int(version.Int64), nil
}

// Up applies all pending migrations in order.
func (m *Migrator) Up(ctx context.Context) error {
	_, err := m.Steps(ctx, len(m.migrations))
	return err
}

// Down rolls back the last applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	n, err := m.Steps(ctx, -1)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no migrations to rollback")
	}
	return nil
}

// Steps applies (positive) or rolls back (negative) up to |steps| migrations
// and reports how many were executed.
func (m *Migrator) Steps(ctx context.Context, steps int) (int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	if currentVersion >= len(m.migrations) {
		return 0, fmt.Errorf("database is at version %d but only %d migrations are known", currentVersion, len(m.migrations))
	}

	done := 0
	for ; steps > 0 && currentVersion+1 < len(m.migrations); steps-- {
		migration := m.migrations[currentVersion+1]
		if err := ctx.Err(); err != nil {
			return done, fmt.Errorf("context cancelled while applying migration %d: %w", migration.Version, err)
		}

		logger.LogInfo("Applying migration", "version", migration.Version, "name", migration.Name)
		if err := m.applyMigration(ctx, migration, true); err != nil {
			return done, fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		currentVersion = migration.Version
		done++
	}

	for ; steps < 0 && currentVersion > NoVersion; steps++ {
		migration := m.migrations[currentVersion]
		if err := ctx.Err(); err != nil {
			return done, fmt.Errorf("context cancelled while rolling back migration %d: %w", migration.Version, err)
		}
		if strings.TrimSpace(migration.DownSQL) == "" {
			return done, fmt.Errorf("migration %d does not have a down.sql file or it is empty", migration.Version)
		}

		logger.LogInfo("Rolling back migration", "version", migration.Version, "name", migration.Name)
		if err := m.applyMigration(ctx, migration, false); err != nil {
			return done, fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
		}
		currentVersion = migration.Version - 1
		done++
	}

	return done, nil
}

// applyMigration applies a single migration (up or down) within a transaction.
func (m *Migrator) applyMigration(ctx context.Context, migration Migration, up bool) error {
	script := migration.DownSQL
	if up {
		script = migration.UpSQL
	}

	tx, err := m.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range Statements(script) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w\nStatement: %s", i+1, err, stmt)
		}
	}

	switch {
	case up:
		if _, err := tx.Exec(ctx,
			"INSERT INTO migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING",
			migration.Version,
		); err != nil {
			return fmt.Errorf("failed to record migration version %d: %w", migration.Version, err)
		}
	case migration.Version > 0:
		// Version 0 drops the migrations table itself.
		if _, err := tx.Exec(ctx, "DELETE FROM migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to remove migration version %d: %w", migration.Version, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
