// Command provision loads a department seed file: students, teachers, the
// subject catalog and teaching assignments. Re-running it updates existing
// rows in place.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/nsut-attendance/backend/internal/auth"
	"github.com/nsut-attendance/backend/internal/config"
	constants "github.com/nsut-attendance/backend/internal/constants"
	"github.com/nsut-attendance/backend/internal/logger"
	"github.com/nsut-attendance/backend/pkg/attendance"
	"github.com/nsut-attendance/backend/pkg/db"
	"github.com/nsut-attendance/backend/pkg/department"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: provision <seed.json>\n\nEnvironment Variables:\n  %s  Database connection URL\n", constants.DATABASE_URL)
		os.Exit(1)
	}

	config.LoadEnv()
	logger.Init(config.GetEnv(constants.LOG_LEVEL, "info"))

	if err := run(context.Background(), os.Args[1]); err != nil {
		logger.LogErrorWithContext("Provisioning failed", err, map[string]any{"seed": os.Args[1]})
		os.Exit(1)
	}
}

func loadSeed(path string) (department.Seed, error) {
	var seed department.Seed
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("failed to read seed file: %w", err)
	}
	if err := sonic.ConfigStd.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := attendance.NewValidator().Struct(seed); err != nil {
		return seed, fmt.Errorf("seed file is invalid: %w", attendance.ValidationFromValidator(err))
	}
	return seed, nil
}

// emptySections names the seed sections that provision nothing.
func emptySections(seed department.Seed) []string {
	var empty []string
	if len(seed.Students) == 0 {
		empty = append(empty, "students")
	}
	if len(seed.Teachers) == 0 {
		empty = append(empty, "teachers")
	}
	if len(seed.Subjects) == 0 {
		empty = append(empty, "subjects")
	}
	if len(seed.Assignments) == 0 {
		empty = append(empty, "assignments")
	}
	return empty
}

func run(ctx context.Context, path string) error {
	seed, err := loadSeed(path)
	if err != nil {
		return err
	}
	logger.LogDebug("Seed loaded", "path", path,
		"students", len(seed.Students), "teachers", len(seed.Teachers),
		"subjects", len(seed.Subjects), "assignments", len(seed.Assignments))
	if empty := emptySections(seed); len(empty) > 0 {
		logger.LogWarn("Seed sections are empty", "sections", empty)
	}

	connectionString := config.GetEnv(constants.DATABASE_URL)
	if connectionString == "" {
		return fmt.Errorf("%s environment variable is not set", constants.DATABASE_URL)
	}
	database, err := db.NewDB(ctx, connectionString)
	if err != nil {
		return err
	}
	defer database.Close()

	sum, err := department.Provision(ctx, database, seed, auth.HashPassword)
	if err != nil {
		return err
	}

	logger.LogInfo("Department provisioned",
		"students", sum.Students,
		"teachers", sum.Teachers,
		"subjects", sum.Subjects,
		"assignments", sum.Assignments,
	)
	return nil
}
