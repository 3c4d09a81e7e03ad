// Command migrate applies and authors the PostgreSQL schema migrations.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/dronehub/backend/internal/infrastructure/logger"
	"github.com/dronehub/backend/internal/infrastructure/migration"
	"github.com/dronehub/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	dir      = flag.String("path", "", "read migrations from this directory instead of the embedded set")
	logLevel = flag.String("log-level", "info", "debug, info, warn or error")
	confirm  = flag.Bool("confirm", false, "required by drop")
)

var errUsage = errors.New("bad arguments")

// command runs either against the source tree or against a migrator
type command struct {
	usage string
	help  string
	local func(log *zap.Logger, args []string) error
	db    func(m *migration.Migrator, log *zap.Logger, args []string) error
}

var commands = map[string]command{
	"up":   {help: "apply all pending migrations", db: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() }},
	"down": {help: "roll back every migration", db: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() }},
	"step": {usage: "<n>", help: "apply n migrations, negative rolls back", db: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	}},
	"goto": {usage: "<version>", help: "migrate up or down to version", db: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		v, err := intArg(args)
		if err != nil || v < 0 {
			return errUsage
		}
		return m.GoTo(uint(v))
	}},
	"force": {usage: "<version>", help: "mark version as applied after a failed run", db: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	}},
	"version": {help: "print the applied version", db: func(m *migration.Migrator, log *zap.Logger, _ []string) error {
		v, dirty, err := m.Version()
		if err == nil {
			log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		}
		return err
	}},
	"drop": {help: "drop every table, requires -confirm", db: func(m *migration.Migrator, _ *zap.Logger, _ []string) error {
		if !*confirm {
			return errors.New("drop removes every order and customer, re-run with -confirm")
		}
		return m.Drop()
	}},
	"create": {usage: "<name> [description]", help: "write the next numbered up/down pair", local: func(log *zap.Logger, args []string) error {
		if len(args) == 0 {
			return errUsage
		}
		desc := ""
		if len(args) > 1 {
			desc = args[1]
		}
		mf, err := migration.CreateMigration(sourceDir(), args[0], desc)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil
	}},
	"list": {help: "list migrations in the source tree", local: func(_ *zap.Logger, _ []string) error {
		names, err := migration.ListMigrations(sourceDir())
		for _, n := range names {
			fmt.Println("  -", n)
		}
		return err
	}},
}

func main() {
	flag.Usage = usage
	flag.Parse()
	name, args := flag.Arg(0), flag.Args()
	cmd, ok := commands[name]
	if !ok {
		usage()
		os.Exit(2)
	}
	if len(args) > 0 {
		args = args[1:]
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cmd.local != nil {
		err = cmd.local(log, args)
	} else {
		err = withMigrator(log, func(m *migration.Migrator) error { return cmd.db(m, log, args) })
	}
	if errors.Is(err, errUsage) {
		log.Fatal("Usage: migrate " + strings.TrimSpace(name+" "+cmd.usage))
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func withMigrator(log *zap.Logger, fn func(*migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if *dir != "" {
		m, err = migration.New(db, *dir, log)
	} else {
		m, err = migration.NewEmbedded(db, migrations.FS, log)
	}
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return fn(m)
}

func sourceDir() string {
	if *dir == "" {
		return "migrations"
	}
	return *dir
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errUsage
	}
	return n, nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range []string{"up", "down", "step", "goto", "version", "force", "drop", "create", "list"} {
		c := commands[name]
		fmt.Fprintf(out, "  %-28s %s\n", strings.TrimSpace(name+" "+c.usage), c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nThe database is read from SHOP_DATABASE_* like the server.")
}
