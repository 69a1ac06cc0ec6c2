package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/karkinos-edge/authserver/types"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "authserver"

// createAccountScript claims the username index and writes the account hash
// in one step. Returns 0 when the username is already taken.
var createAccountScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2],
	'id', ARGV[1],
	'username', ARGV[2],
	'password_hash', ARGV[3],
	'created_at', ARGV[4],
	'updated_at', ARGV[4])
return 1
`)

// updatePasswordScript overwrites the hash only if the account exists.
var updatePasswordScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'password_hash', ARGV[1], 'updated_at', ARGV[2])
return 1
`)

// RedisStore keeps accounts and profiles as Redis hashes.
//
// Layout, relative to the key prefix:
//
//	account:<id>                 hash of the account fields
//	account:username:<username>  account id, claimed with SETNX
//	profile:<id>                 hash of the profile fields
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore builds a store rooted at prefix. An empty prefix uses "authserver".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: utcNow}
}

func (s *RedisStore) FindAccountByUsername(ctx context.Context, username string) (types.Account, error) {
	id, err := s.client.Get(ctx, s.usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}

	fields, err := s.client.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return types.Account{}, err
	}
	if len(fields) == 0 {
		return types.Account{}, ErrNotFound
	}

	account := types.Account{
		ID:           fields["id"],
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
	}
	if account.CreatedAt, err = parseRedisTime(fields["created_at"]); err != nil {
		return types.Account{}, err
	}
	if account.UpdatedAt, err = parseRedisTime(fields["updated_at"]); err != nil {
		return types.Account{}, err
	}
	return account, nil
}

func (s *RedisStore) CreateAccount(ctx context.Context, username, passwordHash string) (types.Account, error) {
	now := s.now()
	account := types.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := createAccountScript.Run(ctx, s.client,
		[]string{s.usernameKey(username), s.accountKey(account.ID)},
		account.ID, account.Username, account.PasswordHash, formatRedisTime(now),
	).Int()
	if err != nil {
		return types.Account{}, err
	}
	if created == 0 {
		return types.Account{}, ErrConflict
	}
	return account, nil
}

func (s *RedisStore) CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error) {
	profile.ID = uuid.NewString()
	profile.CreatedAt = s.now()

	err := s.client.HSet(ctx, s.profileKey(profile.ID), map[string]any{
		"id":         profile.ID,
		"firstname":  profile.Firstname,
		"lastname":   profile.Lastname,
		"email":      profile.Email,
		"phone_no":   profile.PhoneNo,
		"username":   profile.Username,
		"account_id": profile.AccountID,
		"created_at": formatRedisTime(profile.CreatedAt),
	}).Err()
	if err != nil {
		return types.Profile{}, err
	}
	return profile, nil
}

func (s *RedisStore) UpdateAccountPassword(ctx context.Context, accountID, passwordHash string) error {
	updated, err := updatePasswordScript.Run(ctx, s.client,
		[]string{s.accountKey(accountID)},
		passwordHash, formatRedisTime(s.now()),
	).Int()
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) accountKey(id string) string {
	return s.prefix + ":account:" + id
}

func (s *RedisStore) usernameKey(username string) string {
	return s.prefix + ":account:username:" + username
}

func (s *RedisStore) profileKey(id string) string {
	return s.prefix + ":profile:" + id
}

func formatRedisTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseRedisTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
