package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BaSui01/knowbase/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "up":
		withMigrationRunner(subargs, func(ctx context.Context, r *migration.Runner) error {
			return r.RunUp(ctx)
		})
	case "down":
		withMigrationRunner(subargs, func(ctx context.Context, r *migration.Runner) error {
			return r.RunDown(ctx)
		})
	case "reset":
		withMigrationRunner(subargs, func(ctx context.Context, r *migration.Runner) error {
			return r.RunDownAll(ctx)
		})
	case "steps":
		runMigrateSteps(subargs)
	case "status":
		withMigrationRunner(subargs, func(ctx context.Context, r *migration.Runner) error {
			return r.RunStatus(ctx)
		})
	case "version":
		withMigrationRunner(subargs, func(ctx context.Context, r *migration.Runner) error {
			return r.RunVersion(ctx)
		})
	case "info":
		withMigrationRunner(subargs, func(ctx context.Context, r *migration.Runner) error {
			return r.RunInfo(ctx)
		})
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  knowbase migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration
  steps     Apply or rollback n migrations (negative n rolls back)
  status    Show migration status
  version   Show current migration version
  info      Show detailed migration information
  reset     Rollback all migrations
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML)
  --db-url <url>    Database connection URL (default: from config)

Examples:
  knowbase migrate up
  knowbase migrate up --config /etc/knowbase/config.yaml
  knowbase migrate steps -- -1
  knowbase migrate status`)
}

// createMigrator creates a migrator from command line flags
func createMigrator(fs *flag.FlagSet, args []string) (*migration.DefaultMigrator, []string, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbURL := fs.String("db-url", "", "Database connection URL")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if *dbURL != "" {
		m, err := migration.NewMigratorFromURL(*dbURL)
		return m, fs.Args(), err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	m, err := migration.NewMigratorFromConfig(cfg)
	return m, fs.Args(), err
}

// withMigrationRunner runs fn against a migrator-backed runner and exits on failure
func withMigrationRunner(args []string, fn func(context.Context, *migration.Runner) error) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrator, _, err := createMigrator(fs, args)
	if err != nil {
		fatalf("failed to create migrator: %v", err)
	}
	defer migrator.Close()

	if err := fn(context.Background(), migration.NewRunner(migrator, nil)); err != nil {
		fatalf("%v", err)
	}
}

// runMigrateSteps applies or rolls back n migrations
func runMigrateSteps(args []string) {
	fs := flag.NewFlagSet("migrate steps", flag.ExitOnError)
	migrator, rest, err := createMigrator(fs, args)
	if err != nil {
		fatalf("failed to create migrator: %v", err)
	}
	defer migrator.Close()

	if len(rest) < 1 {
		fatalf("migrate steps requires a step count")
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		fatalf("invalid step count: %v", err)
	}

	if err := migration.NewRunner(migrator, nil).RunSteps(context.Background(), n); err != nil {
		fatalf("%v", err)
	}
}
