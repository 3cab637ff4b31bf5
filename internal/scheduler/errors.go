package scheduler

import (
	"fmt"

	"cronpilot/internal/runner"
	"cronpilot/internal/store"
)

// ErrNotFound is returned for operations on unknown task ids.
var ErrNotFound = store.ErrTaskNotFound

// ErrAlreadyRunning is returned when a manual run hits the running-task
// guard. No execution record is produced.
var ErrAlreadyRunning = runner.ErrAlreadyRunning

// ValidationError reports a rejected input field. No state is mutated when
// one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
