package server

import (
	"context"
	"fmt"

	"github.com/karkinos-edge/authserver/config"
	"github.com/karkinos-edge/authserver/internal/db"
	"github.com/karkinos-edge/authserver/internal/services"
	"github.com/karkinos-edge/authserver/internal/store"
)

type credentialStore interface {
	services.CredentialStore
	Close() error
}

// openStore connects the backend named by cfg.Database.Driver. SQLite
// databases are migrated on open; the other SQL backends are migrated by the
// migrate command.
func openStore(ctx context.Context, cfg config.Config) (credentialStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(conn), nil

	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(conn, db.DialectSQLite); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return store.NewSQLiteStore(conn), nil

	case config.DriverMySQL:
		conn, err := db.OpenMySQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(conn), nil

	case config.DriverRedis:
		client, err := db.OpenRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client, ""), nil

	case config.DriverMemory:
		return store.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
