package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// OpenDatabase opens a handle for one of the supported drivers and pairs it
// with the matching bun dialect. Postgres serves server deployments, SQLite
// the embedded single-file store.
func OpenDatabase(driver string, dsn string) (*sql.DB, schema.Dialect, error) {
	normalized, err := normalizeDriver(driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(normalized, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: open %s database: %w", normalized, err)
	}
	dialect, err := DialectFor(normalized)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, dialect, nil
}

// DialectFor resolves the bun dialect for a driver name.
func DialectFor(driver string) (schema.Dialect, error) {
	normalized, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	switch normalized {
	case DriverPostgres:
		return pgdialect.New(), nil
	default:
		return sqlitedialect.New(), nil
	}
}

func normalizeDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case DriverPostgres, "pg", "postgresql":
		return DriverPostgres, nil
	case DriverSQLite, "sqlite":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q", strings.TrimSpace(driver))
	}
}
