package domain

import (
	"errors"
	"time"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSessionNotFound is returned when a session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)

// Session binds a browser client to a user identity for a fixed lifetime.
// Username and email are a snapshot taken at login time and are not
// re-validated against the credential store while the session lives.
type Session struct {
	Token     string // Opaque random handle, stored in the cookie
	UserID    string
	Username  string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its absolute expiry.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity returns the request identity carried by the session.
func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Username: s.Username, Email: s.Email}
}

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID   string
	Username string
	Email    string
}
