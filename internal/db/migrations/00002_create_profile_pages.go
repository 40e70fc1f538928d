package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateProfilePages, downCreateProfilePages)
}

// The unique index on slug is what keeps addresses globally unique; the
// availability pre-checks in the application only narrow the window.
func upCreateProfilePages(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch Dialect() {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS profile_pages (
    id            BIGSERIAL PRIMARY KEY,
    owner_id      BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    slug          TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    instagram_url TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS profile_pages (
    id            BIGINT AUTO_INCREMENT PRIMARY KEY,
    owner_id      BIGINT NOT NULL,
    slug          VARCHAR(64) NOT NULL,
    title         VARCHAR(120) NOT NULL DEFAULT '',
    description   VARCHAR(600) NOT NULL DEFAULT '',
    instagram_url VARCHAR(255) NOT NULL DEFAULT '',
    created_at    DATETIME(6) NOT NULL,
    updated_at    DATETIME(6) NOT NULL,
    CONSTRAINT fk_profile_pages_owner FOREIGN KEY (owner_id) REFERENCES users (id) ON DELETE CASCADE
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS profile_pages (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id      INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    slug          TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    instagram_url TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create profile_pages table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX idx_profile_pages_slug ON profile_pages (slug)`); err != nil {
		return fmt.Errorf("create profile_pages slug index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX idx_profile_pages_owner ON profile_pages (owner_id, updated_at)`); err != nil {
		return fmt.Errorf("create profile_pages owner index: %w", err)
	}
	return nil
}

func downCreateProfilePages(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS profile_pages`)
	return err
}
