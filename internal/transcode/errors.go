package transcode

import (
	"errors"
	"fmt"
)

// Sentinel values for validation failures that block a job before any
// subprocess starts.
var (
	ErrNoInput           = errors.New("no input selected")
	ErrNoFramesFound     = errors.New("no frame files found")
	ErrIncompleteStemSet = errors.New("incomplete audio stem set")
	ErrAborted           = errors.New("operator declined to proceed")
)

// ValidationError reports a pre-flight failure with operator-facing context.
// Jobs that fail validation never transition to running.
type ValidationError struct {
	Message string
	Err     error
}

// Error formats the validation failure for logs and UI.
func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying sentinel for errors.Is checks.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StepError reports a subprocess that exited non-zero. Diagnostics carries
// the full captured stderr text of the failed step.
type StepError struct {
	StepID      string
	ExitCode    int
	Diagnostics string
	Err         error
}

// Error formats the step failure with its exit code.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed (exit %d)", e.StepID, e.ExitCode)
}

// Unwrap exposes the process error for errors.Is / errors.As.
func (e *StepError) Unwrap() error {
	return e.Err
}
