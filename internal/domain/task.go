package domain

import (
	"errors"
	"time"
)

// ErrTaskNotFound is returned when a task does not exist or belongs to a
// different owner. The two cases are deliberately indistinguishable.
var ErrTaskNotFound = errors.New("task not found")

// Priority classifies how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}

	return false
}

// Rank returns the numeric weight of the priority, higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}

	return 0
}

// Category groups tasks by area of life.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryGeneral  Category = "general"
)

// Valid reports whether c is a known category value.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryGeneral:
		return true
	}

	return false
}

// Task represents a to-do item owned by exactly one user.
type Task struct {
	ID          string     `json:"id"`          // Opaque unique identifier
	UserID      string     `json:"userId"`      // Owner, immutable after creation
	Title       string     `json:"title"`       // Required, at most 100 characters
	Description string     `json:"description"` // Optional, at most 500 characters
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	DueDate     *time.Time `json:"dueDate"` // Optional
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Overdue reports whether the task has a due date in the past and is not done.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}

// TaskPatch describes a partial update to a task. Nil fields are left
// untouched. ClearDueDate removes the due date and takes precedence over
// DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	Completed    *bool
	Priority     *Priority
	Category     *Category
	DueDate      *time.Time
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Category == nil && p.DueDate == nil && !p.ClearDueDate
}

// TaskStats aggregates a single owner's tasks for the dashboard and the
// stats endpoint.
type TaskStats struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	CompletionRate int            `json:"completionRate"` // round(100*completed/total), 0 when total is 0
	PriorityStats  map[string]int `json:"priorityStats"`
	CategoryStats  map[string]int `json:"categoryStats"`
}
