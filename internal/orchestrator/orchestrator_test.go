package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/example/pathforge/internal/models"
	"github.com/example/pathforge/internal/providers/llm"
	"github.com/example/pathforge/internal/sandbox"
	"github.com/example/pathforge/internal/tasks"
)

// brokenCandidate parses but walks through walls, which validation rejects.
const brokenCandidate = `package main

var visited [][2]int

// FindPath walks straight toward the target, ignoring cell contents.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	visited = nil
	if len(grid) == 0 {
		return nil
	}
	path := [][2]int{start}
	visited = append(visited, start)
	return path
}

// VisitedOrder returns the cells expanded by the last FindPath call.
func VisitedOrder() [][2]int {
	return visited
}
`

// stagedClient emits brokenCandidate first, then defers to the mock's
// known-good implementation for repairs.
type stagedClient struct {
	mock llm.MockClient
}

func (s *stagedClient) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	return brokenCandidate, nil
}

func (s *stagedClient) Repair(ctx context.Context, req llm.RepairRequest) (string, error) {
	return s.mock.Repair(ctx, req)
}

// blockingClient parks until its context is cancelled.
type blockingClient struct{}

func (b *blockingClient) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingClient) Repair(ctx context.Context, req llm.RepairRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newOrchestrator(client llm.Client) *Orchestrator {
	return New(client, &sandbox.Executor{Timeout: 10 * time.Second}, tasks.NewManager(), nil, 3)
}

func waitTerminal(t *testing.T, o *Orchestrator, id string) models.Task {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		task, err := o.Tasks.Get(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if task.Status.IsTerminal() {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", id)
	return models.Task{}
}

func TestGenerateWithValidCandidateCompletesWithExecution(t *testing.T) {
	o := newOrchestrator(&llm.MockClient{})
	id := o.SubmitGenerate("breadth-first search", Scenario{})
	task := waitTerminal(t, o, id)
	if task.Status != models.StatusCompleted {
		t.Fatalf("status = %s, error = %s", task.Status, task.Error)
	}
	if task.Result == nil || !task.Result.Report.IsValid {
		t.Fatalf("missing or invalid result: %+v", task.Result)
	}
	if task.Result.Execution == nil || !task.Result.Execution.Found {
		t.Fatalf("valid candidate should have been executed: %+v", task.Result.Execution)
	}
	if task.Progress != 100 {
		t.Fatalf("progress = %v", task.Progress)
	}
}

func TestGenerateWithInvalidCandidateCompletesWithoutExecution(t *testing.T) {
	o := newOrchestrator(&stagedClient{})
	id := o.SubmitGenerate("something sloppy", Scenario{})
	task := waitTerminal(t, o, id)
	if task.Status != models.StatusCompleted {
		t.Fatalf("status = %s, error = %s", task.Status, task.Error)
	}
	if task.Result == nil || task.Result.Report.IsValid {
		t.Fatalf("expected an invalid report: %+v", task.Result)
	}
	if task.Result.Execution != nil {
		t.Fatal("invalid candidate must not be executed")
	}
}

func TestGenerateAndFixRepairsBrokenCandidate(t *testing.T) {
	o := newOrchestrator(&stagedClient{})
	id := o.SubmitGenerateAndFix("breadth-first search", Scenario{})
	task := waitTerminal(t, o, id)
	if task.Status != models.StatusCompleted {
		t.Fatalf("status = %s, error = %s", task.Status, task.Error)
	}
	if task.Iterations == 0 || len(task.FixHistory) == 0 {
		t.Fatalf("repair history missing: %+v", task)
	}
	if !task.Result.Report.IsValid {
		t.Fatal("final candidate should be valid")
	}
	if task.Result.Execution == nil || !task.Result.Execution.Found {
		t.Fatalf("accepted candidate should find the path: %+v", task.Result.Execution)
	}
}

func TestFixRepairsCallerSource(t *testing.T) {
	o := newOrchestrator(&stagedClient{})
	id := o.SubmitFix(brokenCandidate, Scenario{})
	task := waitTerminal(t, o, id)
	if task.Status != models.StatusCompleted {
		t.Fatalf("status = %s, error = %s", task.Status, task.Error)
	}
	if task.Result.Source == brokenCandidate {
		t.Fatal("source was not repaired")
	}
}

func TestCancelAbortsInFlightGeneration(t *testing.T) {
	o := newOrchestrator(&blockingClient{})
	id := o.SubmitGenerate("anything", Scenario{})

	// let the worker reach the provider call, then cancel
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, _ := o.Tasks.Get(id)
		if task.Status == models.StatusRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := o.Tasks.Cancel(id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	task := waitTerminal(t, o, id)
	if task.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", task.Status)
	}
}

func TestValidateSourceIsSynchronous(t *testing.T) {
	o := newOrchestrator(&llm.MockClient{})
	report := o.ValidateSource(brokenCandidate)
	if report.IsValid {
		t.Fatal("broken candidate validated")
	}
	if report.ErrorCount() == 0 {
		t.Fatal("expected error findings")
	}
}

// gateClient holds the generate call until released, so tests can subscribe
// before any event fires.
type gateClient struct {
	release chan struct{}
	mock    llm.MockClient
}

func (g *gateClient) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	<-g.release
	return g.mock.Generate(ctx, req)
}

func (g *gateClient) Repair(ctx context.Context, req llm.RepairRequest) (string, error) {
	return g.mock.Repair(ctx, req)
}

func TestSubscribeSeesTerminalStatus(t *testing.T) {
	client := &gateClient{release: make(chan struct{})}
	o := newOrchestrator(client)
	id := o.SubmitGenerate("breadth-first search", Scenario{})
	ch, unsub := o.Subscribe(id)
	defer unsub()
	close(client.release)
	waitTerminal(t, o, id)
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no event published")
	}
}
