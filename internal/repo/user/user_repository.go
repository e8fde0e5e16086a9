package user

import (
	"context"

	"github.com/pmayland/taskboard/internal/domain"
)

// Repository defines the interface for credential persistence.
type Repository interface {
	// CreateUser adds a new user to the repository.
	// Returns domain.ErrDuplicateEmail if the email is already registered
	// and domain.ErrUserAlreadyExists if the username is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByEmail retrieves a user by their normalized email address.
	// Returns the user and true if found, or nil and false if not found.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
