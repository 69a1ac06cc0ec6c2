package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/karkinos-edge/authserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// credentialStore mirrors the operations every backend exposes.
type credentialStore interface {
	FindAccountByUsername(ctx context.Context, username string) (types.Account, error)
	CreateAccount(ctx context.Context, username, passwordHash string) (types.Account, error)
	CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error)
	UpdateAccountPassword(ctx context.Context, accountID, passwordHash string) error
	Close() error
}

var (
	_ credentialStore = (*SQLStore)(nil)
	_ credentialStore = (*GormStore)(nil)
	_ credentialStore = (*RedisStore)(nil)
	_ credentialStore = (*MemoryStore)(nil)
)

// runStoreSuite exercises the behaviour shared by all backends.
// newStore must return an empty store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) credentialStore) {
	t.Run("find missing account", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindAccountByUsername(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create and find account", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.CreateAccount(ctx, "alice", "hash-1")
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "alice", created.Username)
		assert.Equal(t, "hash-1", created.PasswordHash)
		assert.False(t, created.CreatedAt.IsZero())

		found, err := s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "hash-1", found.PasswordHash)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.CreateAccount(ctx, "alice", "hash-1")
		require.NoError(t, err)

		_, err = s.CreateAccount(ctx, "alice", "hash-2")
		assert.ErrorIs(t, err, ErrConflict)

		found, err := s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, "hash-1", found.PasswordHash)
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateAccount(ctx, "alice", "hash-1")
		require.NoError(t, err)
		_, err = s.CreateAccount(ctx, "Alice", "hash-2")
		require.NoError(t, err)

		found, err := s.FindAccountByUsername(ctx, "Alice")
		require.NoError(t, err)
		assert.Equal(t, "hash-2", found.PasswordHash)
	})

	t.Run("create profile", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		account, err := s.CreateAccount(ctx, "alice", "hash-1")
		require.NoError(t, err)

		profile, err := s.CreateProfile(ctx, types.Profile{
			Firstname: "A",
			Lastname:  "B",
			Email:     "a@x.com",
			PhoneNo:   "555",
			Username:  account.Username,
			AccountID: account.ID,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, profile.ID)
		assert.Equal(t, account.ID, profile.AccountID)
		assert.Equal(t, "alice", profile.Username)
	})

	t.Run("update password", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		account, err := s.CreateAccount(ctx, "alice", "hash-1")
		require.NoError(t, err)

		require.NoError(t, s.UpdateAccountPassword(ctx, account.ID, "hash-2"))

		found, err := s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "hash-2", found.PasswordHash)
		assert.Equal(t, account.ID, found.ID)
	})

	t.Run("update password of unknown account", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateAccountPassword(context.Background(), "00000000-0000-0000-0000-000000000000", "hash")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent creates keep one account per username", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.CreateAccount(ctx, "racer", "hash")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, conflicts)
	})
}
