package models

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared across packages. Components wrap these with
// fmt.Errorf("…: %w", err) so callers can branch with errors.Is.
var (
	// ErrNotFound is returned for unknown task ids and algorithm names.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a lifecycle operation is requested on
	// a task whose state does not admit it (e.g. pausing a completed task).
	ErrInvalidState = errors.New("invalid task state")

	// ErrCancelled is observed by workers at checkpoint boundaries after a
	// cancel request.
	ErrCancelled = errors.New("task cancelled")

	// ErrTimeout means sandboxed execution exceeded its wall-clock ceiling.
	ErrTimeout = errors.New("execution timed out")

	// ErrStepLimit means sandboxed execution exceeded its step budget.
	ErrStepLimit = errors.New("execution step limit exceeded")

	// ErrStagnation means the fix loop stopped making measurable progress.
	ErrStagnation = errors.New("fix loop stagnated")

	// ErrNotValidated is returned by the registry when saving a candidate
	// that neither passed validation nor carries an explicit override.
	ErrNotValidated = errors.New("candidate not validated")

	// ErrNameConflict is returned by the registry when a save would
	// overwrite an unrelated algorithm.
	ErrNameConflict = errors.New("algorithm name already in use")
)

// ExternalError wraps a failure of the external generator service. The
// Recoverable hint tells the caller whether resubmitting is worthwhile.
type ExternalError struct {
	Op          string // "generate" or "repair"
	Recoverable bool
	Err         error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external %s call failed: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// ReportError carries the last validation report alongside a fix-loop
// failure so a poller can see exactly what remains wrong.
type ReportError struct {
	Report ValidationReport
	Err    error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("%v (last score %d, %d errors remaining)",
		e.Err, e.Report.Score, e.Report.ErrorCount())
}

func (e *ReportError) Unwrap() error { return e.Err }
