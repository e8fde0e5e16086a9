package tasksvc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pmayland/taskboard/internal/domain"
	"github.com/pmayland/taskboard/internal/infra/logging"
	"github.com/pmayland/taskboard/internal/repo/task"
	"github.com/pmayland/taskboard/internal/util/encoding"
	"github.com/pmayland/taskboard/internal/util/uuid"
)

// TaskConfig contains configuration parameters for the task service.
type TaskConfig struct {
	// DashboardLimit caps how many recent tasks the dashboard shows
	DashboardLimit int `env:"DASHBOARD_LIMIT" default:"10"`
}

// CreateFields are the caller-supplied attributes of a new task. Zero
// values for priority and category receive the documented defaults before
// validation.
type CreateFields struct {
	Title       string
	Description string
	Priority    domain.Priority
	Category    domain.Category
	DueDate     *time.Time
}

// TaskService owns task CRUD, aggregate stats, and the defaults/validation
// applied before anything reaches the repository. Ownership checks live in
// the repository queries; the service never fetches a task without an owner
// scope.
type TaskService struct {
	Config TaskConfig
	Repo   task.Repository
	Log    logging.Logger
}

// NewTaskService creates a new TaskService with the given repository
// factory and configuration.
func NewTaskService(repoFactory task.RepositoryFactory, cfg TaskConfig) (*TaskService, error) {
	log := logging.GetLogger("svc.tasksvc.task_service")

	repo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new task repo: %w", err)
	}

	return &TaskService{
		Config: cfg,
		Repo:   repo,
		Log:    log,
	}, nil
}

// Create validates the fields, applies defaults, and persists a new task
// owned by ownerID. Validation happens before persistence; malformed input
// never reaches the repository.
func (s *TaskService) Create(ctx context.Context, ownerID string, fields CreateFields) (_ *domain.Task, err error) {
	log := s.Log.With(logging.Group("task", "owner", ownerID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task created")
		}
	}()

	if fields.Priority == "" {
		fields.Priority = domain.PriorityMedium
	}

	if fields.Category == "" {
		fields.Category = domain.CategoryGeneral
	}

	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newTask := &domain.Task{
		ID:          newID(),
		UserID:      ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		Completed:   false,
		Priority:    fields.Priority,
		Category:    fields.Category,
		DueDate:     fields.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.CreateTask(ctx, newTask); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return newTask, nil
}

// List returns all of the owner's tasks, most recently created first.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks, err := s.Repo.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Recent returns the owner's most recent tasks for the dashboard, capped by
// the configured limit and ordered by the ranking policy. Unknown filter and
// sort values fall back to "all" and input order respectively.
func (s *TaskService) Recent(ctx context.Context, ownerID string, filter Filter, key SortKey) ([]domain.Task, error) {
	tasks, err := s.Repo.ListByOwner(ctx, ownerID, s.Config.DashboardLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent tasks: %w", err)
	}

	return Rank(tasks, filter, key, time.Now().UTC()), nil
}

// Get returns a single owned task, or domain.ErrTaskNotFound when the id is
// unknown or belongs to someone else.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	found, ok, err := s.Repo.GetOwned(ctx, taskID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	return found, nil
}

// Update applies a partial update to an owned task. The patch is
// re-validated before persistence; domain.ErrTaskNotFound covers both a
// missing id and foreign ownership.
func (s *TaskService) Update(
	ctx context.Context,
	ownerID, taskID string,
	patch domain.TaskPatch,
) (_ *domain.Task, err error) {
	log := s.Log.With(logging.Group("task", "owner", ownerID, "id", taskID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task updated")
		}
	}()

	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}

	updated, ok, err := s.Repo.UpdateOwned(ctx, taskID, ownerID, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	return updated, nil
}

// Delete hard-deletes an owned task. domain.ErrTaskNotFound covers both a
// missing id and foreign ownership.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) (err error) {
	log := s.Log.With(logging.Group("task", "owner", ownerID, "id", taskID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task deleted")
		}
	}()

	ok, err := s.Repo.DeleteOwned(ctx, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if !ok {
		return domain.ErrTaskNotFound
	}

	return nil
}

// Stats aggregates the owner's tasks: totals, completion rate, and
// per-priority/per-category counts. total == completed + pending always
// holds; completionRate is 0 when there are no tasks.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (domain.TaskStats, error) {
	total, err := s.Repo.CountByOwner(ctx, ownerID, nil)
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}

	done := true

	completed, err := s.Repo.CountByOwner(ctx, ownerID, &done)
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("count completed tasks: %w", err)
	}

	priorityStats, err := s.Repo.AggregateByOwner(ctx, ownerID, "priority")
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("aggregate by priority: %w", err)
	}

	categoryStats, err := s.Repo.AggregateByOwner(ctx, ownerID, "category")
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("aggregate by category: %w", err)
	}

	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(completed) / float64(total) * 100))
	}

	return domain.TaskStats{
		Total:          total,
		Completed:      completed,
		Pending:        total - completed,
		CompletionRate: rate,
		PriorityStats:  priorityStats,
		CategoryStats:  categoryStats,
	}, nil
}

// Close releases resources held by the service, such as database connections.
func (s *TaskService) Close() error {
	if err := s.Repo.Close(); err != nil {
		return fmt.Errorf("close task repo: %w", err)
	}

	return nil
}

func newID() string {
	id, err := uuid.New(uuid.UUIDv7)
	if err != nil {
		panic(err) // UUIDv7 is always supported
	}

	return encoding.EncodeCrockfordB32LC(id.Bytes())
}
