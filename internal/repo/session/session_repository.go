package session

import (
	"context"

	"github.com/pmayland/taskboard/internal/domain"
)

// Repository defines the interface for server-side session persistence.
// Session lookups are explicit store calls keyed by the token extracted
// from the request; nothing is cached in process.
type Repository interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by its token.
	// Returns the session and true if found, or nil and false if not found.
	// Expiry is not checked here; callers decide what expired means.
	GetSession(ctx context.Context, token string) (*domain.Session, bool, error)

	// DeleteSession removes a session. Deleting an absent session is not an
	// error, which makes logout idempotent.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpired removes all sessions that expired at or before now.
	DeleteExpired(ctx context.Context, now int64) (int, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
