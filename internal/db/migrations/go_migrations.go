// Package migrations holds the schema as dialect-aware Go migrations. Column
// types, auto-increment keys and timestamp types differ between SQLite,
// PostgreSQL and MySQL, so no single SQL file serves all three.
package migrations

// dialect is set by the parent db package before migrations are applied.
var dialect string

// SetDialect configures the SQL dialect for Go migrations.
// Must be called before goose.Up. Valid values: "sqlite3", "postgres", "mysql".
func SetDialect(d string) {
	dialect = d
}

// Dialect returns the dialect configured by SetDialect, defaulting to sqlite3.
func Dialect() string {
	if dialect == "" {
		return "sqlite3"
	}
	return dialect
}
