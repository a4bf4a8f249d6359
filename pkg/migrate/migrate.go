package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are created and validated on disk.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

const embeddedDir = "migrations"

var gooseMu sync.Mutex

// withGoose configures goose's package-level state for one call. An empty dir selects the
// migrations compiled into the binary; anything else is read from disk.
func withGoose(dir string, fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if dir == "" {
		goose.SetBaseFS(embedded)
		dir = embeddedDir
	} else {
		goose.SetBaseFS(nil)
	}
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(dir)
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, dir string) error {
	return withGoose(dir, func(dir string) error {
		return wrap("up", goose.UpContext(ctx, db, dir))
	})
}

// Down rolls back the latest migration.
func Down(ctx context.Context, db *sql.DB, dir string) error {
	return withGoose(dir, func(dir string) error {
		return wrap("down", goose.DownContext(ctx, db, dir))
	})
}

// Status prints applied and pending migrations through goose's logger.
func Status(ctx context.Context, db *sql.DB, dir string) error {
	return withGoose(dir, func(dir string) error {
		return wrap("status", goose.StatusContext(ctx, db, dir))
	})
}

// ToVersion migrates up or down until the schema is at target (YYYYMMDDHHMMSS).
func ToVersion(ctx context.Context, db *sql.DB, dir string, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	return withGoose(dir, func(dir string) error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current < version:
			return wrap("up-to", goose.UpToContext(ctx, db, dir, version))
		case current > version:
			return wrap("down-to", goose.DownToContext(ctx, db, dir, version))
		}
		return nil
	})
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
