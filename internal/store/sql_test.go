package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/karkinos-edge/authserver/internal/db"
	"github.com/karkinos-edge/authserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) credentialStore {
		sqlDB, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
		require.NoError(t, err)
		require.NoError(t, db.MigrateUp(sqlDB, db.DialectSQLite))
		t.Cleanup(func() { _ = sqlDB.Close() })
		return NewSQLiteStore(sqlDB)
	})
}

func newPostgresStoreWithMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return NewPostgresStore(sqlDB), mock
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	lite := &SQLStore{dialect: DialectSQLite}

	query := `UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`
	assert.Equal(t, `UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`, pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestPostgresStore_FindAccountByUsername(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)
	now := time.Now().UTC()

	q := `(?s)^\s*SELECT\s+id,\s*username,\s*password_hash,\s*created_at,\s*updated_at\s+FROM\s+accounts\s+WHERE\s+username\s*=\s*\$1\s*$`
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "updated_at"}).
		AddRow("a-1", "alice", "hash", now, now)
	mock.ExpectQuery(q).WithArgs("alice").WillReturnRows(rows)

	got, err := s.FindAccountByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindAccountByUsername_NotFound(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectQuery(`FROM\s+accounts`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := s.FindAccountByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_FindAccountByUsername_DBError(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectQuery(`FROM\s+accounts`).WithArgs("alice").WillReturnError(errors.New("db down"))

	_, err := s.FindAccountByUsername(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_FindAccountByUsername_NULByte(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectQuery(`FROM\s+accounts`).WithArgs("al\x00ice").
		WillReturnError(&pq.Error{Code: "22021", Message: "invalid byte sequence for encoding \"UTF8\": 0x00"})

	_, err := s.FindAccountByUsername(context.Background(), "al\x00ice")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAccount(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	q := `(?s)^\s*INSERT\s+INTO\s+accounts\s*\(id,\s*username,\s*password_hash,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.CreateAccount(context.Background(), "alice", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "alice", got.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAccount_UniqueViolation(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.CreateAccount(context.Background(), "alice", "hash")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPostgresStore_CreateAccount_OtherError(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

	_, err := s.CreateAccount(context.Background(), "alice", "hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestPostgresStore_CreateProfile(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	q := `(?s)INSERT\s+INTO\s+profiles\s*\(id,\s*firstname,\s*lastname,\s*email,\s*phone_no,\s*username,\s*account_id,\s*created_at\)\s*VALUES\s*\(\$1,.*\$8\)`
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "A", "B", "a@x.com", "555", "alice", "a-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.CreateProfile(context.Background(), types.Profile{
		Firstname: "A", Lastname: "B", Email: "a@x.com", PhoneNo: "555", Username: "alice", AccountID: "a-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAccountPassword(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	q := `(?s)UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3`
	mock.ExpectExec(q).
		WithArgs("new-hash", sqlmock.AnyArg(), "a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateAccountPassword(context.Background(), "a-1", "new-hash"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAccountPassword_NotFound(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(`UPDATE\s+accounts`).
		WithArgs("new-hash", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateAccountPassword(context.Background(), "missing", "new-hash")
	assert.ErrorIs(t, err, ErrNotFound)
}
