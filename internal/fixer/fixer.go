// Package fixer drives the iterative repair loop: validate, ask the model
// for a fix, re-validate, and stop on success, stagnation, or the attempt cap.
package fixer

import (
	"context"
	"fmt"
	"time"

	"github.com/example/pathforge/internal/models"
	"github.com/example/pathforge/internal/providers/llm"
)

// DefaultMaxIterations matches the attempt cap exposed through config.
const DefaultMaxIterations = 5

// stagnationWindow is how many consecutive non-improving iterations are
// tolerated before the loop gives up early.
const stagnationWindow = 2

// Loop holds the collaborators for one repair run. Validate is injected so
// the package has no dependency on the validator and tests can script scores.
type Loop struct {
	Client        llm.Client
	Validate      func(source string) models.ValidationReport
	MaxIterations int

	// Checkpoint, when set, is consulted before each expensive step. It
	// blocks while the owning task is paused and returns an error when the
	// task was cancelled.
	Checkpoint func() error

	// OnIteration, when set, is called after each completed iteration so the
	// caller can surface progress and history to pollers.
	OnIteration func(it models.FixIteration)
}

// Result is the outcome of a repair run. Source and Report describe the best
// candidate the loop ended on; History records every attempt in order.
type Result struct {
	Source  string
	Report  models.ValidationReport
	History []models.FixIteration
}

func (l *Loop) maxIterations() int {
	if l.MaxIterations > 0 {
		return l.MaxIterations
	}
	return DefaultMaxIterations
}

func (l *Loop) checkpoint() error {
	if l.Checkpoint == nil {
		return nil
	}
	return l.Checkpoint()
}

// Fix repairs source until it validates cleanly or the loop terminates.
// On failure the returned error wraps the last validation report in a
// models.ReportError so callers can still show what was wrong.
func (l *Loop) Fix(ctx context.Context, source string) (Result, error) {
	res := Result{Source: source, Report: l.Validate(source)}
	if res.Report.IsValid {
		return res, nil
	}

	max := l.maxIterations()
	stale := 0
	for i := 1; i <= max; i++ {
		if err := l.checkpoint(); err != nil {
			return res, err
		}
		began := time.Now()
		before := res.Report

		raw, err := l.Client.Repair(ctx, llm.RepairRequest{
			Source:        res.Source,
			Report:        before,
			Iteration:     i,
			MaxIterations: max,
		})
		if err != nil {
			return res, &models.ExternalError{Op: "repair", Recoverable: true, Err: err}
		}
		candidate := llm.CleanCode(raw)

		if err := l.checkpoint(); err != nil {
			return res, err
		}
		after := l.Validate(candidate)

		it := models.NewFixIteration(i, before, after, time.Since(began))
		res.History = append(res.History, it)
		if l.OnIteration != nil {
			l.OnIteration(it)
		}

		// keep the candidate unless it scored strictly worse
		if after.Score >= before.Score {
			res.Source, res.Report = candidate, after
		}
		if after.IsValid {
			res.Source, res.Report = candidate, after
			return res, nil
		}

		if after.Score > before.Score {
			stale = 0
		} else {
			stale++
			if stale >= stagnationWindow {
				return res, &models.ReportError{
					Report: res.Report,
					Err:    fmt.Errorf("no improvement in %d iterations: %w", stale, models.ErrStagnation),
				}
			}
		}
	}
	return res, &models.ReportError{
		Report: res.Report,
		Err:    fmt.Errorf("still invalid after %d iterations", max),
	}
}
