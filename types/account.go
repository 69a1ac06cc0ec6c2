package types

import "time"

// Account is the credential record identifying a principal.
type Account struct {
	// ID is the opaque identifier assigned by the store on creation.
	ID string `json:"id" db:"id"`

	// Username is the unique login name. It is stored exactly as provided.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the account password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent password change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Profile holds the personal details captured at registration.
// It is written once, next to its Account, and never read back by the service.
type Profile struct {
	ID        string `json:"id" db:"id"`
	Firstname string `json:"firstname" db:"firstname"`
	Lastname  string `json:"lastname" db:"lastname"`
	Email     string `json:"email" db:"email"`
	PhoneNo   string `json:"phoneNo" db:"phone_no"`

	// Username is copied from the Account at registration time and is not
	// kept in sync afterwards.
	Username string `json:"username" db:"username"`

	// AccountID links the profile to its Account without owning it.
	AccountID string `json:"account_id" db:"account_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
