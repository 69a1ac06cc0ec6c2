package db

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/karkinos-edge/authserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresURL(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "auth",
		Password: "p@ss/word",
		DBName:   "creds",
	}}

	u, err := url.Parse(PostgresURL(cfg))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:6543", u.Host)
	assert.Equal(t, "/creds", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	cfg.Database.UseSSL = true
	u, err = url.Parse(PostgresURL(cfg))
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestSQLiteMigrations(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, MigrateUp(sqlDB, DialectSQLite))
	// second run is a no-op
	require.NoError(t, MigrateUp(sqlDB, DialectSQLite))

	for _, table := range []string{"accounts", "profiles"} {
		var name string
		err := sqlDB.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	require.NoError(t, MigrateDown(sqlDB, DialectSQLite))

	var count int
	err = sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('accounts', 'profiles')`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMigrateUnknownDialect(t *testing.T) {
	err := MigrateUp(nil, Dialect("oracle"))
	require.Error(t, err)
}
