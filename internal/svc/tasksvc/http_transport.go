package tasksvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pmayland/taskboard/internal/domain"
	context_ "github.com/pmayland/taskboard/internal/infra/context"
	"github.com/pmayland/taskboard/internal/infra/logging"
)

// Generic client-facing messages for store failures; detail stays in logs.
const (
	msgErrFetching = "Error fetching tasks"
	msgErrCreating = "Error creating task"
	msgErrUpdating = "Error updating task"
	msgErrDeleting = "Error deleting task"
	msgErrStats    = "Error fetching statistics"
)

// HTTPTransport handles the JSON API for tasks. Session enforcement happens
// in the surrounding middleware; handlers here read the identity from the
// request context and pass the owner id into every service call.
type HTTPTransport struct {
	taskSvc *TaskService
	log     logging.Logger
	mux     *http.ServeMux
}

// NewHTTPTransport creates a new HTTPTransport and sets up routes for the
// task API endpoints:
// - GET    /api/tasks:       full ordered task list
// - POST   /api/tasks:       create a task
// - GET    /api/tasks/stats: aggregate statistics
// - PUT    /api/tasks/{id}:  partial update
// - DELETE /api/tasks/{id}:  hard delete.
func NewHTTPTransport(taskSvc *TaskService) *HTTPTransport {
	ht := &HTTPTransport{
		taskSvc: taskSvc,
		log:     logging.GetLogger("svc.tasksvc.http_transport"),
		mux:     http.NewServeMux(),
	}

	ht.mux.HandleFunc("GET /api/tasks", ht.HandleList)
	ht.mux.HandleFunc("POST /api/tasks", ht.HandleCreate)
	ht.mux.HandleFunc("GET /api/tasks/stats", ht.HandleStats)
	ht.mux.HandleFunc("PUT /api/tasks/{id}", ht.HandleUpdate)
	ht.mux.HandleFunc("DELETE /api/tasks/{id}", ht.HandleDelete)

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

type taskEnvelope struct {
	Message string       `json:"message"`
	Task    *domain.Task `json:"task"`
}

type messageEnvelope struct {
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	//nolint:errcheck
	writeJSON(w, status, errorEnvelope{Error: message})
}

// writeDomainError maps service errors onto the API error contract: first
// violated validation rule as 400, not-found as 404, everything else as a
// generic 500 with the given message.
func writeDomainError(w http.ResponseWriter, err error, storeMessage string) {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	default:
		writeError(w, http.StatusInternalServerError, storeMessage)
	}
}

func identityFromRequest(r *http.Request) (domain.Identity, error) {
	identity, ok := context_.IdentityFromContext(r.Context())
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	return identity, nil
}

// HandleList returns the authenticated user's full task list, most recent
// first, as a JSON array.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "list tasks failed", "error", err)
		} else {
			log.DebugContext(ctx, "tasks listed")
		}
	}(r.Context())

	identity, err := identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")

		return err
	}

	tasks, err := ht.taskSvc.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgErrFetching)

		return fmt.Errorf("list tasks: %w", err)
	}

	if tasks == nil {
		tasks = []domain.Task{} // an empty list is [], not null
	}

	return writeJSON(w, http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	DueDate     *string `json:"dueDate"`
}

// HandleCreate creates a task from the JSON body and answers 201 with the
// created task.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "create task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task created")
		}
	}(r.Context())

	identity, err := identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")

		return err
	}

	var req createTaskRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")

		return fmt.Errorf("decode body: %w", err)
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		writeDomainError(w, err, msgErrCreating)

		return err
	}

	created, err := ht.taskSvc.Create(r.Context(), identity.UserID, CreateFields{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		Category:    domain.Category(req.Category),
		DueDate:     dueDate,
	})
	if err != nil {
		writeDomainError(w, err, msgErrCreating)

		return fmt.Errorf("create task: %w", err)
	}

	return writeJSON(w, http.StatusCreated, taskEnvelope{
		Message: "Task created successfully",
		Task:    created,
	})
}

type updateTaskRequest struct {
	ID          *string         `json:"id"`
	UserID      *string         `json:"userId"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Completed   *bool           `json:"completed"`
	Priority    *string         `json:"priority"`
	Category    *string         `json:"category"`
	DueDate     json.RawMessage `json:"dueDate"` // absent, null (clear) or a date string
}

// HandleUpdate applies a partial update to the task in the path and answers
// with the updated task.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

//nolint:funlen
func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	taskID := r.PathValue("id")
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "update task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task updated")
		}
	}(r.Context())

	identity, err := identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")

		return err
	}

	var req updateTaskRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")

		return fmt.Errorf("decode body: %w", err)
	}

	// id and owner are immutable; a patch naming either with a different
	// value is rejected before it reaches the store
	if req.ID != nil && *req.ID != taskID {
		err = domain.Invalid("id", "Task id cannot be changed")
		writeDomainError(w, err, msgErrUpdating)

		return err
	}

	if req.UserID != nil && *req.UserID != identity.UserID {
		err = domain.Invalid("userId", "Task owner cannot be changed")
		writeDomainError(w, err, msgErrUpdating)

		return err
	}

	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}

	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		patch.Priority = &priority
	}

	if req.Category != nil {
		category := domain.Category(*req.Category)
		patch.Category = &category
	}

	if err := applyDueDate(&patch, req.DueDate); err != nil {
		writeDomainError(w, err, msgErrUpdating)

		return err
	}

	updated, err := ht.taskSvc.Update(r.Context(), identity.UserID, taskID, patch)
	if err != nil {
		writeDomainError(w, err, msgErrUpdating)

		return fmt.Errorf("update task: %w", err)
	}

	return writeJSON(w, http.StatusOK, taskEnvelope{
		Message: "Task updated successfully",
		Task:    updated,
	})
}

// HandleDelete removes the task in the path.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	taskID := r.PathValue("id")
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "delete task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task deleted")
		}
	}(r.Context())

	identity, err := identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")

		return err
	}

	if err := ht.taskSvc.Delete(r.Context(), identity.UserID, taskID); err != nil {
		writeDomainError(w, err, msgErrDeleting)

		return fmt.Errorf("delete task: %w", err)
	}

	return writeJSON(w, http.StatusOK, messageEnvelope{Message: "Task deleted successfully"})
}

// HandleStats returns aggregate statistics for the authenticated user.
func (ht *HTTPTransport) HandleStats(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleStats(w, r)
}

func (ht *HTTPTransport) handleStats(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "stats failed", "error", err)
		} else {
			log.DebugContext(ctx, "stats returned")
		}
	}(r.Context())

	identity, err := identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")

		return err
	}

	stats, err := ht.taskSvc.Stats(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgErrStats)

		return fmt.Errorf("stats: %w", err)
	}

	return writeJSON(w, http.StatusOK, stats)
}

// parseDueDate accepts RFC 3339 timestamps or plain dates. nil or empty
// means no due date.
func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, *raw); err == nil {
			parsed = parsed.UTC()

			return &parsed, nil
		}
	}

	return nil, domain.Invalid("dueDate", "Invalid due date")
}

// applyDueDate interprets the three states of the dueDate patch field:
// absent (untouched), JSON null or empty string (clear), or a date value.
func applyDueDate(patch *domain.TaskPatch, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	if string(raw) == "null" {
		patch.ClearDueDate = true

		return nil
	}

	var value string

	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.Invalid("dueDate", "Invalid due date")
	}

	if value == "" {
		patch.ClearDueDate = true

		return nil
	}

	dueDate, err := parseDueDate(&value)
	if err != nil {
		return err
	}

	patch.DueDate = dueDate

	return nil
}
