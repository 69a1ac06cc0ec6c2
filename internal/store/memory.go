package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/karkinos-edge/authserver/types"
)

// MemoryStore keeps accounts and profiles in process memory.
// It is meant for local development and tests; nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]types.Account // by id
	byUsername map[string]string        // username -> id
	profiles   map[string]types.Profile // by id
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]types.Account),
		byUsername: make(map[string]string),
		profiles:   make(map[string]types.Profile),
		now:        utcNow,
	}
}

func (s *MemoryStore) FindAccountByUsername(_ context.Context, username string) (types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return types.Account{}, ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, username, passwordHash string) (types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return types.Account{}, ErrConflict
	}

	now := s.now()
	account := types.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[account.ID] = account
	s.byUsername[username] = account.ID
	return account, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, profile types.Profile) (types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.ID = uuid.NewString()
	profile.CreatedAt = s.now()
	s.profiles[profile.ID] = profile
	return profile, nil
}

func (s *MemoryStore) UpdateAccountPassword(_ context.Context, accountID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = s.now()
	s.accounts[accountID] = account
	return nil
}

// ProfilesByAccount returns the profiles linked to an account. It is an
// inspection helper for tests; the service never reads profiles back.
func (s *MemoryStore) ProfilesByAccount(accountID string) []types.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Profile
	for _, p := range s.profiles {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out
}

// AccountCount returns the number of stored accounts. It is an inspection
// helper for tests.
func (s *MemoryStore) AccountCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *MemoryStore) Close() error {
	return nil
}
