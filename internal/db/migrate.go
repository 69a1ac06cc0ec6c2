package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect names the SQL flavour of a migration set.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// MigrateUp applies all pending migrations for the dialect.
// Already-applied migrations are skipped, so it is safe to call on every startup.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	m, err := newMigrator(db, dialect)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// MigrateDown reverts every applied migration for the dialect.
func MigrateDown(db *sql.DB, dialect Dialect) error {
	m, err := newMigrator(db, dialect)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	var dbDriver database.Driver
	switch dialect {
	case DialectPostgres:
		dbDriver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{})
	case DialectSQLite:
		dbDriver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(dialect), dbDriver)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return m, nil
}
