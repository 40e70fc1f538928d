// Package db opens the configured SQL backend and applies the schema.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Drivers lists the accepted values for the db.driver setting.
var Drivers = []string{"sqlite3", "mysql", "postgres"}

// New opens and pings a database handle for driver and dsn. The caller owns
// the returned handle and must Close it.
func New(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	sqlDriver, err := driverName(driver)
	if err != nil {
		return nil, err
	}
	if driver == "mysql" && !strings.Contains(dsn, "parseTime=true") {
		return nil, fmt.Errorf("mysql dsn must set parseTime=true")
	}

	conn, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY under concurrent upserts.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return conn, nil
}

// driverName maps a configured driver to the registered database/sql name.
// modernc/sqlite registers itself as "sqlite" (CGO-free).
func driverName(driver string) (string, error) {
	switch driver {
	case "sqlite3":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported DB driver %q: must be one of %s", driver, strings.Join(Drivers, ", "))
	}
}
