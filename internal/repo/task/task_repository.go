package task

import (
	"context"

	"github.com/pmayland/taskboard/internal/domain"
)

// Repository defines the interface for task persistence. Every query is
// scoped to a single owner; a task that exists but belongs to someone else
// behaves exactly like a task that does not exist.
type Repository interface {
	// CreateTask inserts a fully populated task.
	CreateTask(ctx context.Context, task *domain.Task) error

	// ListByOwner returns the owner's tasks ordered by creation time,
	// most recent first. A limit of 0 means no cap.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Task, error)

	// GetOwned retrieves a task by id for the given owner.
	// Returns the task and true if found, or nil and false when the id is
	// unknown or owned by a different user.
	GetOwned(ctx context.Context, taskID, ownerID string) (*domain.Task, bool, error)

	// UpdateOwned applies a partial update to an owned task and returns the
	// updated row. Returns false when no owned row matched.
	UpdateOwned(ctx context.Context, taskID, ownerID string, patch domain.TaskPatch) (*domain.Task, bool, error)

	// DeleteOwned removes an owned task. Returns false when no owned row matched.
	DeleteOwned(ctx context.Context, taskID, ownerID string) (bool, error)

	// CountByOwner counts the owner's tasks, optionally restricted to a
	// completion state (nil counts everything).
	CountByOwner(ctx context.Context, ownerID string, completed *bool) (int, error)

	// AggregateByOwner groups the owner's tasks by the given field
	// ("priority" or "category") and returns value -> count.
	AggregateByOwner(ctx context.Context, ownerID, field string) (map[string]int, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
