// Package store is the sqlx-backed persistence layer for accounts and
// profile pages. Queries are written with ? placeholders and rebound per
// driver, so the same code serves sqlite3, mysql and postgres.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlugTaken is returned when a write collides with the unique slug index.
	ErrSlugTaken = errors.New("slug is already taken")

	// ErrEmailTaken is returned when an account already uses the email address.
	ErrEmailTaken = errors.New("email is already registered")
)

// isUniqueConstraintError reports whether err is a unique constraint
// violation on any of the supported backends.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // SQLite
		strings.Contains(msg, "duplicate key") || // PostgreSQL
		strings.Contains(msg, "duplicate entry") // MySQL
}

// insertID runs an INSERT and returns the generated primary key. PostgreSQL
// has no LastInsertId, so the query is extended with RETURNING id there.
func insertID(ctx context.Context, db *sqlx.DB, query string, args ...any) (int64, error) {
	if db.DriverName() == "postgres" {
		var id int64
		err := db.QueryRowxContext(ctx, db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
