package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/karkinos-edge/authserver/internal/auth"
	"github.com/karkinos-edge/authserver/internal/events"
	"github.com/karkinos-edge/authserver/internal/store"
	"github.com/karkinos-edge/authserver/types"
	"github.com/sirupsen/logrus"
)

// CredentialStore defines persistence operations for accounts and profiles.
// FindAccountByUsername and UpdateAccountPassword return store.ErrNotFound
// when the account does not exist; CreateAccount returns store.ErrConflict
// when the username is taken.
type CredentialStore interface {
	FindAccountByUsername(ctx context.Context, username string) (types.Account, error)
	CreateAccount(ctx context.Context, username, passwordHash string) (types.Account, error)
	CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error)
	UpdateAccountPassword(ctx context.Context, accountID, passwordHash string) error
}

// EventPublisher receives account lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type RegisterCommand struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	PhoneNo   string `json:"phoneNo"`
}

type AuthenticateCommand struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordCommand struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// DefaultPublishTimeout bounds how long an operation waits on the event broker.
const DefaultPublishTimeout = 3 * time.Second

// CredentialService encapsulates the register, login and password change use-cases.
type CredentialService struct {
	store          CredentialStore
	hasher         auth.PasswordHasher
	publisher      EventPublisher
	publishTimeout time.Duration
	logger         logrus.FieldLogger

	// decoyHash is verified against when the username is unknown, so a
	// failed login costs the same whether or not the account exists.
	decoyOnce sync.Once
	decoyHash string
}

type Option func(*CredentialService)

// WithEventPublisher enables lifecycle events. Without it nothing is published.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *CredentialService) {
		s.publisher = p
	}
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *CredentialService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *CredentialService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCredentialService(store CredentialStore, hasher auth.PasswordHasher, opts ...Option) *CredentialService {
	s := &CredentialService{
		store:          store,
		hasher:         hasher,
		publishTimeout: DefaultPublishTimeout,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and its profile. The existence check is only a
// fast path; the store's unique constraint decides concurrent registrations.
func (s *CredentialService) Register(ctx context.Context, cmd RegisterCommand) (types.Account, error) {
	_, err := s.store.FindAccountByUsername(ctx, cmd.Username)
	switch {
	case err == nil:
		return types.Account{}, ErrDuplicateUsername
	case !errors.Is(err, store.ErrNotFound):
		return types.Account{}, unexpected("find account", err)
	}

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return types.Account{}, unexpected("hash password", err)
	}

	account, err := s.store.CreateAccount(ctx, cmd.Username, hash)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Account{}, ErrDuplicateUsername
		}
		return types.Account{}, unexpected("create account", err)
	}

	// An account without a profile is tolerated; profiles are never read back.
	_, err = s.store.CreateProfile(ctx, types.Profile{
		Firstname: cmd.Firstname,
		Lastname:  cmd.Lastname,
		Email:     cmd.Email,
		PhoneNo:   cmd.PhoneNo,
		Username:  account.Username,
		AccountID: account.ID,
	})
	if err != nil {
		return types.Account{}, unexpected("create profile", err)
	}

	s.publish(ctx, events.TypeAccountRegistered, account)
	return account, nil
}

// Authenticate checks a username/password pair. An unknown username and a
// wrong password fail with the same ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, cmd AuthenticateCommand) (types.Account, error) {
	account, err := s.store.FindAccountByUsername(ctx, cmd.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.verifyDecoy(cmd.Password)
			return types.Account{}, ErrInvalidCredentials
		}
		return types.Account{}, unexpected("find account", err)
	}

	ok, err := s.hasher.Verify(cmd.Password, account.PasswordHash)
	if err != nil {
		return types.Account{}, unexpected("verify password", err)
	}
	if !ok {
		return types.Account{}, ErrInvalidCredentials
	}

	s.publish(ctx, events.TypeAccountAuthenticated, account)
	return account, nil
}

// ChangePassword replaces the password of an existing account after checking
// the current one. Unlike Authenticate, an unknown username is reported as
// ErrAccountNotFound.
func (s *CredentialService) ChangePassword(ctx context.Context, cmd ChangePasswordCommand) error {
	account, err := s.store.FindAccountByUsername(ctx, cmd.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return unexpected("find account", err)
	}

	ok, err := s.hasher.Verify(cmd.CurrentPassword, account.PasswordHash)
	if err != nil {
		return unexpected("verify password", err)
	}
	if !ok {
		return ErrInvalidCurrentPassword
	}

	hash, err := s.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return unexpected("hash password", err)
	}

	if err := s.store.UpdateAccountPassword(ctx, account.ID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return unexpected("update password", err)
	}

	s.publish(ctx, events.TypeAccountPasswordChanged, account)
	return nil
}

func (s *CredentialService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy-password")
		if err != nil {
			s.logger.WithError(err).Warn("failed to prepare decoy hash")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != "" {
		_, _ = s.hasher.Verify(password, s.decoyHash)
	}
}

// publish runs detached from the request's cancellation and bounded by
// publishTimeout, so a stalled broker delays a committed operation by at most
// that long.
func (s *CredentialService) publish(ctx context.Context, eventType string, account types.Account) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := events.NewEvent(eventType, account)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"account_id": account.ID,
		}).Warn("failed to publish account event")
	}
}
