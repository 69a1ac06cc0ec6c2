package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karkinos-edge/authserver/types"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the placeholder style of the underlying database.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// SQLStore persists accounts and profiles through database/sql.
// The same queries serve Postgres and SQLite; username uniqueness is enforced
// by the accounts table constraint.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: DialectPostgres, now: utcNow}
}

func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: DialectSQLite, now: utcNow}
}

func (s *SQLStore) FindAccountByUsername(ctx context.Context, username string) (types.Account, error) {
	query := s.rebind(`
		SELECT id, username, password_hash, created_at, updated_at
		FROM accounts
		WHERE username = ?`)
	var account types.Account
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		// Postgres refuses text it cannot store (NUL bytes); no such account can exist.
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func (s *SQLStore) CreateAccount(ctx context.Context, username, passwordHash string) (types.Account, error) {
	now := s.now()
	account := types.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := s.rebind(`
		INSERT INTO accounts (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Username,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Account{}, ErrConflict
		}
		return types.Account{}, err
	}
	return account, nil
}

func (s *SQLStore) CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error) {
	profile.ID = uuid.NewString()
	profile.CreatedAt = s.now()

	query := s.rebind(`
		INSERT INTO profiles (id, firstname, lastname, email, phone_no, username, account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(
		ctx,
		query,
		profile.ID,
		profile.Firstname,
		profile.Lastname,
		profile.Email,
		profile.PhoneNo,
		profile.Username,
		profile.AccountID,
		profile.CreatedAt,
	); err != nil {
		return types.Profile{}, err
	}
	return profile, nil
}

func (s *SQLStore) UpdateAccountPassword(ctx context.Context, accountID, passwordHash string) error {
	query := s.rebind(`
		UPDATE accounts
		SET password_hash = ?,
			updated_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, passwordHash, s.now(), accountID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isInvalidText reports SQLSTATE 22021 (character_not_in_repertoire).
func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22021"
}

func utcNow() time.Time {
	return time.Now().UTC()
}
