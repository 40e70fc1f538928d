// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/joe-pages/internal/db"
	_ "modernc.org/sqlite"
)

var dbSeq atomic.Int64

// NewTestDB opens a fresh migrated in-memory SQLite database. Every call gets
// its own database, including repeated calls within one test.
func NewTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	// A named shared-cache memory database keeps every pool connection on the
	// same data; one open connection serializes writers the way the sqlite3
	// backend does in production.
	name := t.Name() + "-" + strconv.FormatInt(dbSeq.Add(1), 10)
	dsn := "file:" + url.PathEscape(name) + "?mode=memory&cache=shared" +
		"&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(context.Background(), conn, "sqlite3"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return conn
}
