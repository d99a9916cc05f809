// Package sandbox runs untrusted candidate sources against a grid inside an
// isolated yaegi interpreter. Each execution gets a fresh interpreter with
// no host symbols loaded: the candidate cannot import packages, touch the
// filesystem, or share state with the orchestrator. Inputs cross the
// boundary as rendered Go literals, outputs come back as plain values and
// are sanitized before anyone else sees them.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/example/pathforge/internal/models"
)

const (
	defaultTimeout          = 5 * time.Second
	defaultMaxSteps         = 100_000
	defaultDropWarnFraction = 0.2
)

// Executor runs candidates under a wall-clock ceiling and a step budget.
// The zero value is usable; unset limits fall back to defaults.
type Executor struct {
	// Timeout is the hard wall-clock ceiling per execution. It applies
	// regardless of any caller-side cancellation: a cancelled task cannot
	// extend an execution past this ceiling, and the executor never blocks
	// the caller longer than this.
	Timeout time.Duration

	// MaxSteps bounds the candidate's expansion log (its visited order). A
	// longer log means the algorithm did more work than the budget allows.
	MaxSteps int

	// DropWarnFraction is the sanitization drop ratio above which a warning
	// is attached to the result.
	DropWarnFraction float64
}

// Execute evaluates the candidate and invokes
// FindPath(grid, start, end) followed by VisitedOrder(), then sanitizes
// both sequences against the grid. It returns ErrTimeout when the ceiling
// fires and ErrStepLimit when the visited order exceeds the step budget;
// nothing partial is ever returned.
func (e *Executor) Execute(ctx context.Context, source string, grid models.Grid, start, end models.Point) (*models.ExecutionResult, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxSteps := e.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	// Deliberately no i.Use(...): the candidate sees only the language.

	if _, err := i.EvalWithContext(ctx, source); err != nil {
		return nil, wrapEvalError("load candidate", err)
	}

	call := fmt.Sprintf("FindPath(%s, %s, %s)",
		gridLiteral(grid), pointLiteral(start), pointLiteral(end))
	pathVal, err := i.EvalWithContext(ctx, call)
	if err != nil {
		return nil, wrapEvalError("FindPath", err)
	}
	rawPath, err := toPoints(pathVal.Interface())
	if err != nil {
		return nil, fmt.Errorf("FindPath result: %w", err)
	}

	visitedVal, err := i.EvalWithContext(ctx, "VisitedOrder()")
	if err != nil {
		return nil, wrapEvalError("VisitedOrder", err)
	}
	rawVisited, err := toPoints(visitedVal.Interface())
	if err != nil {
		return nil, fmt.Errorf("VisitedOrder result: %w", err)
	}

	if len(rawVisited) > maxSteps {
		return nil, fmt.Errorf("visited %d cells with a budget of %d: %w",
			len(rawVisited), maxSteps, models.ErrStepLimit)
	}

	res := &models.ExecutionResult{}
	var pathDropped, visitedDropped int
	res.Path, pathDropped = Sanitize(rawPath, grid)
	res.Visited, visitedDropped = Sanitize(rawVisited, grid)
	res.Found = len(res.Path) > 0 && res.Path[len(res.Path)-1] == end

	frac := e.DropWarnFraction
	if frac <= 0 {
		frac = defaultDropWarnFraction
	}
	if note := dropNote("path", pathDropped, len(rawPath), frac); note != "" {
		res.Warnings = append(res.Warnings, note)
	}
	if note := dropNote("visited order", visitedDropped, len(rawVisited), frac); note != "" {
		res.Warnings = append(res.Warnings, note)
	}

	return res, nil
}

// wrapEvalError distinguishes the wall-clock ceiling from candidate bugs.
// Interpreted panics and missing symbols both surface here as plain errors.
func wrapEvalError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, models.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// toPoints converts the interpreter's return value. Candidates that passed
// validation return [][2]int; anything else is a runtime contract breach.
func toPoints(v any) ([]models.Point, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case [][2]int:
		out := make([]models.Point, len(t))
		for i, p := range t {
			out[i] = models.Point(p)
		}
		return out, nil
	case []models.Point:
		return t, nil
	default:
		return nil, fmt.Errorf("unexpected result type %T, want [][2]int", v)
	}
}

func dropNote(what string, dropped, total int, warnFraction float64) string {
	if total == 0 || dropped == 0 {
		return ""
	}
	if float64(dropped)/float64(total) <= warnFraction {
		return ""
	}
	return fmt.Sprintf("sanitization dropped %d of %d %s coordinates; the algorithm likely walks through walls or off the grid",
		dropped, total, what)
}

// gridLiteral renders the grid as a Go composite literal so the value
// enters the interpreter without sharing host memory.
func gridLiteral(grid models.Grid) string {
	var b strings.Builder
	b.WriteString("[][]int{")
	for y, row := range grid {
		if y > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{")
		for x, cell := range row {
			if x > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", cell)
		}
		b.WriteString("}")
	}
	b.WriteString("}")
	return b.String()
}

func pointLiteral(p models.Point) string {
	return fmt.Sprintf("[2]int{%d, %d}", p.Y(), p.X())
}
