package tasksvc

import (
	"sort"
	"time"

	"github.com/pmayland/taskboard/internal/domain"
)

// Filter selects which tasks survive ranking. Modes are mutually exclusive.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterActive       Filter = "active"
	FilterCompleted    Filter = "completed"
	FilterHighPriority Filter = "high-priority"
)

// SortKey is the user-selected ordering applied after the fixed tie-breaks.
type SortKey string

const (
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "due-date"
)

// maxDueDate is the sentinel for tasks without a due date when sorting by
// due date: they sort as if due at the maximum representable date, i.e. last.
//
//nolint:gochecknoglobals
var maxDueDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Rank filters and orders tasks for display. It is a pure function over its
// inputs and the same policy serves the dashboard and the list view, so both
// produce identical order for identical input.
//
// The comparator is one stable total order, not three chained sorts:
//  1. high-priority incomplete tasks before everything else,
//  2. then overdue tasks (due date set, in the past, not completed),
//  3. then the user-selected key; an unknown key keeps input order.
//
// Stability means equal-rank tasks retain their relative input order, which
// makes repeated runs deterministic.
func Rank(tasks []domain.Task, filter Filter, key SortKey, now time.Time) []domain.Task {
	ranked := filterTasks(tasks, filter)

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j], key, now)
	})

	return ranked
}

func filterTasks(tasks []domain.Task, filter Filter) []domain.Task {
	keep := func(domain.Task) bool { return true }

	switch filter {
	case FilterActive:
		keep = func(t domain.Task) bool { return !t.Completed }
	case FilterCompleted:
		keep = func(t domain.Task) bool { return t.Completed }
	case FilterHighPriority:
		keep = func(t domain.Task) bool { return t.Priority == domain.PriorityHigh }
	case FilterAll:
	default: // unknown filters behave like "all"
	}

	filtered := make([]domain.Task, 0, len(tasks))

	for _, task := range tasks {
		if keep(task) {
			filtered = append(filtered, task)
		}
	}

	return filtered
}

//nolint:cyclop
func rankLess(a, b domain.Task, key SortKey, now time.Time) bool {
	aUrgent := a.Priority == domain.PriorityHigh && !a.Completed
	bUrgent := b.Priority == domain.PriorityHigh && !b.Completed

	if aUrgent != bUrgent {
		return aUrgent
	}

	aOverdue := a.Overdue(now)
	bOverdue := b.Overdue(now)

	if aOverdue != bOverdue {
		return aOverdue
	}

	switch key {
	case SortNewest:
		return a.CreatedAt.After(b.CreatedAt)
	case SortOldest:
		return a.CreatedAt.Before(b.CreatedAt)
	case SortPriority:
		return a.Priority.Rank() > b.Priority.Rank()
	case SortDueDate:
		return dueOrMax(a).Before(dueOrMax(b))
	default:
		return false
	}
}

func dueOrMax(t domain.Task) time.Time {
	if t.DueDate == nil {
		return maxDueDate
	}

	return *t.DueDate
}
