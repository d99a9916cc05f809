// Package orchestrator wires the provider client, validator, fix loop,
// sandbox, and task manager into the asynchronous pipeline behind the API.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/pathforge/internal/fixer"
	"github.com/example/pathforge/internal/models"
	"github.com/example/pathforge/internal/providers/llm"
	"github.com/example/pathforge/internal/registry"
	"github.com/example/pathforge/internal/sandbox"
	"github.com/example/pathforge/internal/tasks"
	"github.com/example/pathforge/internal/validator"
)

// Scenario is the grid an accepted candidate is executed against.
type Scenario struct {
	Grid  models.Grid  `json:"grid"`
	Start models.Point `json:"start"`
	End   models.Point `json:"end"`
}

// DefaultScenario is used when a submission carries no grid of its own.
func DefaultScenario() Scenario {
	return Scenario{
		Grid:  models.Grid{{0, 1, 0}, {0, 1, 0}, {0, 0, 0}},
		Start: models.Point{0, 0},
		End:   models.Point{2, 2},
	}
}

func (s Scenario) orDefault() Scenario {
	if len(s.Grid) == 0 {
		return DefaultScenario()
	}
	return s
}

type Orchestrator struct {
	Client        llm.Client
	Sandbox       *sandbox.Executor
	Tasks         *tasks.Manager
	Registry      *registry.Store
	MaxIterations int

	hub *Hub
}

func New(client llm.Client, sb *sandbox.Executor, mgr *tasks.Manager, reg *registry.Store, maxIterations int) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = fixer.DefaultMaxIterations
	}
	return &Orchestrator{
		Client:        client,
		Sandbox:       sb,
		Tasks:         mgr,
		Registry:      reg,
		MaxIterations: maxIterations,
		hub:           NewHub(),
	}
}

// SubmitGenerate starts a generation task and returns its id immediately.
// The finished task carries the candidate and its validation report; the
// candidate is only executed when it validated cleanly.
func (o *Orchestrator) SubmitGenerate(description string, sc Scenario) string {
	sc = sc.orDefault()
	return o.spawn(models.KindGeneration, func(ctx context.Context, id string) (*models.TaskResult, error) {
		source, err := o.generate(ctx, id, description)
		if err != nil {
			return nil, err
		}
		o.progress(id, 60, "validating")
		report := validator.Validate(source)
		result := &models.TaskResult{Source: source, Report: report}
		if !report.IsValid {
			return result, nil
		}
		exec, err := o.execute(ctx, id, source, sc)
		if err != nil {
			return nil, err
		}
		result.Execution = exec
		return result, nil
	})
}

// SubmitFix starts a repair task for caller-supplied source.
func (o *Orchestrator) SubmitFix(source string, sc Scenario) string {
	sc = sc.orDefault()
	return o.spawn(models.KindFixing, func(ctx context.Context, id string) (*models.TaskResult, error) {
		return o.repairAndExecute(ctx, id, source, sc)
	})
}

// SubmitGenerateAndFix runs the full pipeline: generate, validate, repair
// until valid, then execute once.
func (o *Orchestrator) SubmitGenerateAndFix(description string, sc Scenario) string {
	sc = sc.orDefault()
	return o.spawn(models.KindGenerateAndFix, func(ctx context.Context, id string) (*models.TaskResult, error) {
		source, err := o.generate(ctx, id, description)
		if err != nil {
			return nil, err
		}
		return o.repairAndExecute(ctx, id, source, sc)
	})
}

// ValidateSource runs static validation synchronously, with no task.
func (o *Orchestrator) ValidateSource(source string) models.ValidationReport {
	return validator.Validate(source)
}

// ExecuteRegistered loads a saved algorithm and runs it against the scenario.
func (o *Orchestrator) ExecuteRegistered(ctx context.Context, name string, sc Scenario) (*models.ExecutionResult, error) {
	algo, err := o.Registry.Get(name)
	if err != nil {
		return nil, err
	}
	sc = sc.orDefault()
	return o.Sandbox.Execute(ctx, algo.Source, sc.Grid, sc.Start, sc.End)
}

// Subscribe returns a channel of JSON-encoded events for one task. The
// caller must call the returned unsubscribe func when done.
func (o *Orchestrator) Subscribe(taskID string) (<-chan []byte, func()) {
	return o.hub.Subscribe(taskID)
}

// spawn registers a task and hands it to a worker goroutine. The worker owns
// the terminal transition: Complete on success, Fail on error, nothing when
// the task was already cancelled underneath it.
func (o *Orchestrator) spawn(kind models.Kind, run func(ctx context.Context, id string) (*models.TaskResult, error)) string {
	id := o.Tasks.Submit(kind, o.MaxIterations)
	ctx, cancel := context.WithCancel(context.Background())
	o.Tasks.Bind(id, cancel)
	go func() {
		defer cancel()
		if err := o.Tasks.Start(id); err != nil {
			// cancelled while still pending
			return
		}
		o.publishStatus(id, models.StatusRunning)
		result, err := run(ctx, id)
		switch {
		case err == nil:
			if cerr := o.Tasks.Complete(id, result); cerr != nil {
				log.Printf("task %s: complete: %v", id, cerr)
				return
			}
			o.publishStatus(id, models.StatusCompleted)
		case errors.Is(err, models.ErrCancelled):
			o.publishStatus(id, models.StatusCancelled)
		default:
			if ferr := o.Tasks.Fail(id, err); ferr != nil {
				// the task was cancelled while the worker was off-checkpoint
				if errors.Is(ferr, models.ErrInvalidState) {
					o.publishStatus(id, models.StatusCancelled)
					return
				}
				log.Printf("task %s: fail: %v", id, ferr)
				return
			}
			o.publishStatus(id, models.StatusFailed)
		}
	}()
	return id
}

func (o *Orchestrator) generate(ctx context.Context, id, description string) (string, error) {
	if err := o.Tasks.Checkpoint(id); err != nil {
		return "", err
	}
	o.progress(id, 10, "generating")
	raw, err := o.Client.Generate(ctx, llm.GenerateRequest{Description: description})
	if err != nil {
		return "", &models.ExternalError{Op: "generate", Recoverable: true, Err: err}
	}
	return llm.CleanCode(raw), nil
}

func (o *Orchestrator) repairAndExecute(ctx context.Context, id, source string, sc Scenario) (*models.TaskResult, error) {
	o.progress(id, 20, "validating")
	loop := &fixer.Loop{
		Client:        o.Client,
		Validate:      validator.Validate,
		MaxIterations: o.MaxIterations,
		Checkpoint:    func() error { return o.Tasks.Checkpoint(id) },
		OnIteration: func(it models.FixIteration) {
			if err := o.Tasks.RecordIteration(id, it); err != nil {
				log.Printf("task %s: record iteration %d: %v", id, it.Index, err)
			}
			frac := float64(it.Index) / float64(o.MaxIterations)
			o.progress(id, 20+60*frac, fmt.Sprintf("fix iteration %d/%d", it.Index, o.MaxIterations))
			o.hub.Publish(id, Event{Event: "iteration", TaskID: id, Payload: it})
		},
	}
	res, err := loop.Fix(ctx, source)
	if err != nil {
		return nil, err
	}
	exec, err := o.execute(ctx, id, res.Source, sc)
	if err != nil {
		return nil, err
	}
	return &models.TaskResult{Source: res.Source, Report: res.Report, Execution: exec}, nil
}

func (o *Orchestrator) execute(ctx context.Context, id, source string, sc Scenario) (*models.ExecutionResult, error) {
	if err := o.Tasks.Checkpoint(id); err != nil {
		return nil, err
	}
	o.progress(id, 90, "executing")
	return o.Sandbox.Execute(ctx, source, sc.Grid, sc.Start, sc.End)
}

func (o *Orchestrator) progress(id string, pct float64, step string) {
	if err := o.Tasks.UpdateProgress(id, pct, step); err != nil {
		log.Printf("task %s: progress: %v", id, err)
	}
}

func (o *Orchestrator) publishStatus(id string, status models.Status) {
	o.hub.Publish(id, Event{Event: "task_status", TaskID: id, Payload: map[string]any{"status": status}})
}
