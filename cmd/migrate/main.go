package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// command is one migrate subcommand. Offline commands never open a database connection.
type command struct {
	offline bool
	run     func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error)
}

var commands = map[string]command{
	"up": {run: func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error) {
		return "migrations applied", migrate.Up(ctx, sqlDB, opts.dir)
	}},
	"down": {run: func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error) {
		return "rolled back one migration", migrate.Down(ctx, sqlDB, opts.dir)
	}},
	"status": {run: func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error) {
		return "", migrate.Status(ctx, sqlDB, opts.dir)
	}},
	"version": {run: func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error) {
		if opts.version == "" {
			return "", errors.New("missing -version")
		}
		return "schema at version " + opts.version, migrate.ToVersion(ctx, sqlDB, opts.dir, opts.version)
	}},
	"create": {offline: true, run: func(_ context.Context, _ *sql.DB, opts options) (string, error) {
		if opts.name == "" {
			return "", errors.New("missing -name")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name, time.Now())
		return "created migration: " + path, err
	}},
	"validate": {offline: true, run: func(_ context.Context, _ *sql.DB, opts options) (string, error) {
		if opts.dir == "" {
			return "embedded migrations valid", migrate.ValidateEmbedded()
		}
		return "migrations in " + opts.dir + " valid", migrate.ValidateDir(opts.dir)
	}},
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "migrations directory on disk (default: migrations embedded in the binary)")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q (want %s)\n", *cmdName, commandNames())
		os.Exit(2)
	}

	cfg, err := config.Load()
	exitOn(context.Background(), logg, "load config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmdName, "dir": opts.dir})

	var sqlDB *sql.DB
	if !cmd.offline {
		if cfg.DB.Driver == config.DriverSQLite {
			exitOn(ctx, logg, "migrate", errors.New("goose migrations target postgres; sqlite receives its schema at startup"))
		}
		client, err := db.New(ctx, cfg.DB, logg)
		exitOn(ctx, logg, "connect database", err)
		defer client.Close()
		sqlDB, err = client.SQL()
		exitOn(ctx, logg, "extract sql.DB", err)
	}

	msg, err := cmd.run(ctx, sqlDB, opts)
	exitOn(ctx, logg, *cmdName, err)
	if msg != "" {
		logg.Info(ctx, msg)
	}
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
