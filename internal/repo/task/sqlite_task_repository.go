package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pmayland/taskboard/internal/domain"
	"github.com/pmayland/taskboard/internal/infra/logging"
)

// ErrUnknownAggregateField is returned when AggregateByOwner is called with
// a field outside the allow-list.
var ErrUnknownAggregateField = errors.New("unknown aggregate field")

// SQLiteTaskRepositoryConfig holds configuration for the SQLite task repository.
type SQLiteTaskRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/tasks.db"`
}

// SQLiteTaskRepository implements Repository using SQLite as the storage backend.
type SQLiteTaskRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteTaskRepository)(nil)

// aggregateFields maps the allowed aggregate field names to their columns.
// Keeping the allow-list explicit avoids interpolating caller input.
//
//nolint:gochecknoglobals
var aggregateFields = map[string]string{
	"priority": "priority",
	"category": "category",
}

// SQLiteTaskRepositoryFactory creates a factory function that returns a new
// SQLiteTaskRepository. The factory function implements the RepositoryFactory type.
func SQLiteTaskRepositoryFactory(cfg SQLiteTaskRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteTaskRepository(cfg)
	}
}

// NewSQLiteTaskRepository creates a new SQLiteTaskRepository with the given configuration.
// It initializes the database connection and creates the schema if needed.
// Returns an error if database connection or initialization fails.
func NewSQLiteTaskRepository(cfg SQLiteTaskRepositoryConfig) (*SQLiteTaskRepository, error) {
	log := logging.GetLogger("repo.task.sqlite_task_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteTaskRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT    PRIMARY KEY,
			user_id     TEXT    NOT NULL,
			title       TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			completed   INTEGER NOT NULL DEFAULT 0,
			priority    TEXT    NOT NULL DEFAULT 'medium',
			category    TEXT    NOT NULL DEFAULT 'general',
			due_date    INTEGER,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Owner-scoped listing must not degrade into a table scan
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_owner_created
		ON tasks (user_id, created_at DESC)
	`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return nil
}

const taskColumns = "id, user_id, title, description, completed, priority, category, due_date, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (*domain.Task, error) {
	var (
		task      domain.Task
		completed int64
		dueDate   sql.NullInt64
		createdAt int64
		updatedAt int64
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&completed,
		&task.Priority,
		&task.Category,
		&dueDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Completed = completed != 0
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	task.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if dueDate.Valid {
		due := time.UnixMilli(dueDate.Int64).UTC()
		task.DueDate = &due
	}

	return &task, nil
}

// CreateTask implements Repository.CreateTask using SQLite.
func (r *SQLiteTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	var dueDate sql.NullInt64
	if task.DueDate != nil {
		dueDate = sql.NullInt64{Int64: task.DueDate.UnixMilli(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		boolToInt(task.Completed),
		string(task.Priority),
		string(task.Category),
		dueDate,
		task.CreatedAt.UnixMilli(),
		task.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// ListByOwner implements Repository.ListByOwner using SQLite.
func (r *SQLiteTaskRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	args := []any{ownerID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// GetOwned implements Repository.GetOwned using SQLite. Missing ids and
// foreign ownership produce the same not-found result.
func (r *SQLiteTaskRepository) GetOwned(ctx context.Context, taskID, ownerID string) (*domain.Task, bool, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?",
		taskID, ownerID,
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return task, true, nil
}

// UpdateOwned implements Repository.UpdateOwned using SQLite. The update is
// a single owner-scoped statement; concurrent writes to the same row are
// last-write-wins.
func (r *SQLiteTaskRepository) UpdateOwned(
	ctx context.Context,
	taskID, ownerID string,
	patch domain.TaskPatch,
) (*domain.Task, bool, error) {
	r.writeLock.Lock()

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UnixMilli()}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}

	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}

	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*patch.Completed))
	}

	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}

	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}

	switch {
	case patch.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case patch.DueDate != nil:
		sets = append(sets, "due_date = ?")
		args = append(args, patch.DueDate.UnixMilli())
	}

	args = append(args, taskID, ownerID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?",
		args...,
	)

	r.writeLock.Unlock()

	if err != nil {
		return nil, false, fmt.Errorf("update task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return nil, false, nil
	}

	return r.GetOwned(ctx, taskID, ownerID)
}

// DeleteOwned implements Repository.DeleteOwned using SQLite.
func (r *SQLiteTaskRepository) DeleteOwned(ctx context.Context, taskID, ownerID string) (bool, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?",
		taskID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// CountByOwner implements Repository.CountByOwner using SQLite.
func (r *SQLiteTaskRepository) CountByOwner(ctx context.Context, ownerID string, completed *bool) (int, error) {
	query := "SELECT COUNT(*) FROM tasks WHERE user_id = ?"
	args := []any{ownerID}

	if completed != nil {
		query += " AND completed = ?"
		args = append(args, boolToInt(*completed))
	}

	var count int

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

// AggregateByOwner implements Repository.AggregateByOwner using SQLite.
func (r *SQLiteTaskRepository) AggregateByOwner(ctx context.Context, ownerID, field string) (map[string]int, error) {
	column, ok := aggregateFields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregateField, field)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM tasks WHERE user_id = ? GROUP BY "+column,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			value string
			count int
		)

		if err := rows.Scan(&value, &count); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}

		counts[value] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate: %w", err)
	}

	return counts, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteTaskRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
