package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/joestump/joe-pages/internal/db/migrations"
)

//go:embed migrations
var Migrations embed.FS

// Migrate applies all pending migrations. It must run before the HTTP server
// starts accepting requests.
func Migrate(ctx context.Context, conn *sqlx.DB, driver string) error {
	if _, err := driverName(driver); err != nil {
		return err
	}
	migrations.SetDialect(driver)

	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sub, err := fs.Sub(Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sub migrations fs: %w", err)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	if err := goose.UpContext(ctx, conn.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Version reports the schema version recorded by goose.
func Version(ctx context.Context, conn *sqlx.DB, driver string) (int64, error) {
	if err := goose.SetDialect(driver); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, conn.DB)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
