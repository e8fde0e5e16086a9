package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when trying to create a user with a taken username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrDuplicateEmail is returned when the email address is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the email/password combination is incorrect.
	// It covers both unknown email and wrong password so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User represents a registered account in the system.
type User struct {
	ID           string // Opaque unique identifier
	Username     string // Display name, unique
	Email        string // Login email, unique, normalized to lowercase
	PasswordHash []byte // bcrypt hash, never the raw password
	CreatedAt    int64  // Unix timestamp of account creation
}
