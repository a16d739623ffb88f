package workflow

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when an action is invoked before its inputs are complete
var ErrNotReady = errors.New("action not available")

// StageError names the pipeline stage that failed. The wrapped error is a
// *runner.ToolError when the external tool ran and reported failure.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
