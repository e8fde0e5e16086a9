package domain_test

import (
	"testing"
	"time"

	"github.com/pmayland/taskboard/internal/domain"
)

func TestTaskOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task domain.Task
		want bool
	}{
		{name: "no due date", task: domain.Task{}, want: false},
		{name: "due in the future", task: domain.Task{DueDate: &future}, want: false},
		{name: "past due and open", task: domain.Task{DueDate: &past}, want: true},
		{name: "past due but completed", task: domain.Task{DueDate: &past, Completed: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.task.Overdue(now); got != tt.want {
				t.Errorf("Overdue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	t.Parallel()

	if domain.PriorityHigh.Rank() <= domain.PriorityMedium.Rank() ||
		domain.PriorityMedium.Rank() <= domain.PriorityLow.Rank() {
		t.Error("priority ranks not strictly ordered high > medium > low")
	}
}

func TestTaskPatchEmpty(t *testing.T) {
	t.Parallel()

	if !(domain.TaskPatch{}).Empty() {
		t.Error("zero patch not empty")
	}

	title := "x"
	if (domain.TaskPatch{Title: &title}).Empty() {
		t.Error("patch with title reported empty")
	}

	if (domain.TaskPatch{ClearDueDate: true}).Empty() {
		t.Error("clearing patch reported empty")
	}
}
