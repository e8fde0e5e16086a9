package domain

// ValidationError reports the first violated input rule. Handlers surface
// Message to the client verbatim; subsequent violations are not collected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
