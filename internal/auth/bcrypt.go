// Package auth provides the password hashing used for stored credentials.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = bcrypt.DefaultCost

// PasswordHasher turns raw passwords into storable secrets and checks login
// attempts against them.
type PasswordHasher interface {
	// Hash returns a salted hash of password. Every call uses a fresh salt.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A mismatch is (false, nil);
	// an error means the hash itself could not be used.
	Verify(password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt. The salt and cost are
// embedded in the produced hash, so nothing else needs to be stored.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify recomputes the hash with the salt and cost stored in hash and
// compares the results in constant time.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}
