package detect

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage marks an unreadable or zero-size page image. Fatal
	// for that page only; a batch continues with the remaining pages.
	ErrInvalidImage = errors.New("invalid page image")

	// ErrSettingsInvalid marks an out-of-range configuration value. It is
	// raised by Settings.Validate before any page is processed.
	ErrSettingsInvalid = errors.New("invalid settings")

	// ErrSplitLimit is recorded when a candidate reaches its split budget.
	// Refinement keeps the pre-split polygon and continues; the condition
	// is logged, never surfaced as a page failure.
	ErrSplitLimit = errors.New("split limit exceeded")
)

// StageError wraps a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
