package rewrite

import (
	"errors"
	"fmt"
)

// SetupError aborts a run before any task is dispatched: the session could
// not be reached, navigated or queried.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed: %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsSetupError reports whether err carries a *SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// MutationError is returned when a reply could not be written into its
// element. It only affects the task it names.
type MutationError struct {
	TaskID int
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to apply rewrite to task %d: %v", e.TaskID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
