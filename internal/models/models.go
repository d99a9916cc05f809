package models

import (
	"time"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Kind identifies what a Task does.
type Kind string

const (
	KindGeneration     Kind = "generation"
	KindFixing         Kind = "fixing"
	KindValidation     Kind = "validation"
	KindGenerateAndFix Kind = "generate_and_fix"
)

// Level is the severity of a validation Finding.
type Level string

const (
	LevelError      Level = "error"
	LevelWarning    Level = "warning"
	LevelSuggestion Level = "suggestion"
)

// Finding is a single static-analysis observation about a candidate source.
type Finding struct {
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	Line       int    `json:"line,omitempty"` // 1-based, 0 when not tied to a line
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidationReport is the scored outcome of statically analysing one
// candidate source text. IsValid is strictly "zero error-level findings";
// the score is a separate weighted composite.
type ValidationReport struct {
	Score    int       `json:"score"` // 0-100
	IsValid  bool      `json:"is_valid"`
	Findings []Finding `json:"findings,omitempty"`
}

// ErrorCount returns the number of error-level findings.
func (r ValidationReport) ErrorCount() int { return r.countLevel(LevelError) }

// WarningCount returns the number of warning-level findings.
func (r ValidationReport) WarningCount() int { return r.countLevel(LevelWarning) }

func (r ValidationReport) countLevel(l Level) int {
	n := 0
	for _, f := range r.Findings {
		if f.Level == l {
			n++
		}
	}
	return n
}

// FixIteration records one repair cycle: the report the repair was asked to
// address and the report of the code that came back.
type FixIteration struct {
	Index       int              `json:"index"` // 1-based, strictly increasing per task
	Before      ValidationReport `json:"before"`
	After       ValidationReport `json:"after"`
	ErrorsFixed int              `json:"errors_fixed"`
	ScoreDelta  int              `json:"score_delta"`
	Duration    time.Duration    `json:"duration_ns"`
}

// NewFixIteration derives the counters from the before/after reports.
func NewFixIteration(index int, before, after ValidationReport, d time.Duration) FixIteration {
	return FixIteration{
		Index:       index,
		Before:      before,
		After:       after,
		ErrorsFixed: before.ErrorCount() - after.ErrorCount(),
		ScoreDelta:  after.Score - before.Score,
		Duration:    d,
	}
}

// TaskResult is the payload of a completed task.
type TaskResult struct {
	Source    string           `json:"source"`
	Report    ValidationReport `json:"report"`
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// Task is a point-in-time snapshot of an asynchronous work item. Snapshots
// are copies; callers never observe a record mid-update.
type Task struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"` // 0-100, monotone while running
	Step     string  `json:"step,omitempty"`

	Result     *TaskResult    `json:"result,omitempty"` // present only when completed
	Error      string         `json:"error,omitempty"`  // present only when failed
	FixHistory []FixIteration `json:"fix_history,omitempty"`
	Iterations int            `json:"iterations"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ElapsedSeconds     float64  `json:"elapsed_seconds"`
	EstimatedRemaining *float64 `json:"estimated_remaining_seconds,omitempty"` // nil until one iteration finished
}

// CustomAlgorithm is a named, persisted candidate accepted by the user.
type CustomAlgorithm struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
