package services

import (
	"errors"
	"fmt"
)

// Domain failures returned by CredentialService. Callers map them to
// user-readable responses.
var (
	ErrDuplicateUsername      = errors.New("username already exists")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidCurrentPassword = errors.New("invalid current password")
	ErrUnexpected             = errors.New("unexpected failure")
)

// UnexpectedError wraps an infrastructure failure (store or hasher). It
// matches ErrUnexpected with errors.Is while keeping the cause for logs.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() []error {
	return []error{ErrUnexpected, e.Err}
}

func unexpected(op string, err error) error {
	return &UnexpectedError{Op: op, Err: err}
}
