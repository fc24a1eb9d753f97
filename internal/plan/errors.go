package plan

import "fmt"

// ValidationError reports malformed or unresolvable input. The field
// names the offending request path where one can be pinned down.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validationf builds a ValidationError with a formatted message.
func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports reuse of an idempotency key with a different
// request body. The caller must pick a new key or resubmit identically.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
