// Command migrate applies the postgres schema of the document store.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/migration"
	"github.com/crm/backend/migrations"
)

// migrator is the subset of *migration.Migrator the commands drive
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	GoTo(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
}

type command struct {
	usage string
	// arg names the required argument, if any
	arg string
	run func(m migrator, arg string, log *zap.Logger) error
}

var commands = map[string]command{
	"up":   {usage: "Apply all pending migrations", run: func(m migrator, _ string, _ *zap.Logger) error { return m.Up() }},
	"down": {usage: "Roll back all migrations", run: func(m migrator, _ string, _ *zap.Logger) error { return m.Down() }},
	"steps": {usage: "Apply n migrations (positive=up, negative=down)", arg: "n",
		run: func(m migrator, arg string, _ *zap.Logger) error {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid step count %q", arg)
			}
			return m.Steps(n)
		}},
	"goto": {usage: "Migrate to a specific version", arg: "version",
		run: func(m migrator, arg string, _ *zap.Logger) error {
			v, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q", arg)
			}
			return m.GoTo(uint(v))
		}},
	"force": {usage: "Force set migration version (repairs a dirty state)", arg: "version",
		run: func(m migrator, arg string, _ *zap.Logger) error {
			v, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid version %q", arg)
			}
			return m.Force(v)
		}},
	"version": {usage: "Show current migration version",
		run: func(m migrator, _ string, log *zap.Logger) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if v == 0 {
				log.Info("No migrations applied")
				return nil
			}
			log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		}},
}

var errUsage = errors.New("usage")

// parseCommand resolves args to a command and its argument
func parseCommand(args []string) (command, string, error) {
	if len(args) == 0 {
		return command{}, "", errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return command{}, "", fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if cmd.arg == "" {
		return cmd, "", nil
	}
	if len(args) < 2 {
		return command{}, "", fmt.Errorf("%w: %s requires <%s>", errUsage, args[0], cmd.arg)
	}
	return cmd, args[1], nil
}

func listMigrations(source fs.FS, out io.Writer) error {
	names, err := migration.ListMigrations(source)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(out, "  -", name)
	}
	return nil
}

func main() {
	migrationsPath := flag.String("path", "", "Path to a migrations directory (default: embedded migrations)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	defer func() { _ = log.Sync() }()

	var source fs.FS = migrations.FS
	if *migrationsPath != "" {
		source = os.DirFS(*migrationsPath)
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "list" {
		if err := listMigrations(source, os.Stdout); err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		return
	}

	cmd, arg, err := parseCommand(args)
	if err != nil {
		if len(args) > 0 {
			log.Error("Invalid invocation", zap.Error(err))
		}
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		log.Fatal("SQL migrations target postgres; the server creates the sqlite schema on startup")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	// the migrator owns db from here and closes it
	m, err := migration.New(db, source, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	log.Info("Running migration command", zap.String("command", args[0]), zap.String("arg", arg))
	if err := cmd.run(m, arg, log); err != nil {
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `CRM database migration tool

Usage:
  migrate [flags] <command> [argument]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  steps <n>             Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (repairs a dirty state)
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: migrations embedded in the binary)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment:
  CRM_DATABASE_HOST, CRM_DATABASE_PORT, CRM_DATABASE_USER, CRM_DATABASE_PASSWORD,
  CRM_DATABASE_DBNAME, CRM_DATABASE_SSLMODE
`)
}
