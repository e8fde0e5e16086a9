package tasksvc

import (
	"unicode/utf8"

	"github.com/pmayland/taskboard/internal/domain"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
)

// ValidateTitle checks the required-and-bounded rule on a task title.
// A title of exactly the maximum length is accepted.
func ValidateTitle(title string) error {
	if title == "" {
		return domain.Invalid("title", "Title is required")
	}

	if utf8.RuneCountInString(title) > maxTitleLength {
		return domain.Invalid("title", "Title must be less than 100 characters")
	}

	return nil
}

// ValidateDescription checks the length bound on an optional description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return domain.Invalid("description", "Description must be less than 500 characters")
	}

	return nil
}

// ValidatePriority checks enum membership.
func ValidatePriority(priority domain.Priority) error {
	if !priority.Valid() {
		return domain.Invalid("priority", "Invalid priority")
	}

	return nil
}

// ValidateCategory checks enum membership.
func ValidateCategory(category domain.Category) error {
	if !category.Valid() {
		return domain.Invalid("category", "Invalid category")
	}

	return nil
}

// ValidateFields runs the creation rules in order and returns the first
// violation only. Enum fields are validated after defaulting, so empty
// values never reach here.
func ValidateFields(fields CreateFields) error {
	if err := ValidateTitle(fields.Title); err != nil {
		return err
	}

	if err := ValidateDescription(fields.Description); err != nil {
		return err
	}

	if err := ValidatePriority(fields.Priority); err != nil {
		return err
	}

	return ValidateCategory(fields.Category)
}

// ValidatePatch runs the update rules in order against the fields the patch
// actually sets and returns the first violation only.
func ValidatePatch(patch domain.TaskPatch) error {
	if patch.Title != nil {
		if err := ValidateTitle(*patch.Title); err != nil {
			return err
		}
	}

	if patch.Description != nil {
		if err := ValidateDescription(*patch.Description); err != nil {
			return err
		}
	}

	if patch.Priority != nil {
		if err := ValidatePriority(*patch.Priority); err != nil {
			return err
		}
	}

	if patch.Category != nil {
		if err := ValidateCategory(*patch.Category); err != nil {
			return err
		}
	}

	return nil
}
