// Package tasks implements a thread-safe, in-memory task store.
//
// API handlers and worker goroutines access tasks through the Manager. The
// mutex ensures safe concurrent access; the condition variable implements
// cooperative pause. State is ephemeral, it lives only for the duration of
// the server process.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/pathforge/internal/models"
)

// record is the mutable backing state for one task. It is only touched with
// the manager lock held; the outside world sees models.Task snapshots.
type record struct {
	id            string
	kind          models.Kind
	status        models.Status
	progress      float64
	step          string
	result        *models.TaskResult
	errMsg        string
	history       []models.FixIteration
	maxIterations int

	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time

	cancel context.CancelFunc // aborts the worker's context on Cancel
}

// Manager holds all tasks, protected by a mutex. Tasks live in a map for
// O(1) lookup and a slice preserving insertion order for stable listing.
type Manager struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks map[string]*record
	order []string
}

func NewManager() *Manager {
	m := &Manager{tasks: make(map[string]*record)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Submit registers a new pending task and returns its id. maxIterations is
// the repair attempt cap; it seeds the remaining-time estimate.
func (m *Manager) Submit(kind models.Kind, maxIterations int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &record{
		id:            uuid.NewString(),
		kind:          kind,
		status:        models.StatusPending,
		maxIterations: maxIterations,
		createdAt:     time.Now(),
	}
	m.tasks[r.id] = r
	m.order = append(m.order, r.id)
	return r.id
}

// Bind attaches the worker context's cancel function so Cancel can abort an
// in-flight provider call. Safe to call exactly once, before Start.
func (m *Manager) Bind(id string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.tasks[id]; ok && !r.status.IsTerminal() {
		r.cancel = cancel
	}
}

// Start moves a pending task to running. Called by the worker goroutine that
// claims the task.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status != models.StatusPending {
		return transitionError(r.status, models.StatusRunning)
	}
	now := time.Now()
	r.status = models.StatusRunning
	r.startedAt = &now
	return nil
}

// UpdateProgress raises the progress percentage and replaces the step label.
// Progress never moves backwards; a lower value only updates the label.
func (m *Manager) UpdateProgress(id string, progress float64, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status != models.StatusRunning && r.status != models.StatusPaused {
		return transitionError(r.status, r.status)
	}
	if progress > r.progress {
		r.progress = progress
	}
	if step != "" {
		r.step = step
	}
	return nil
}

// RecordIteration appends one finished repair cycle to the task's history.
// The iteration durations drive the remaining-time estimate in snapshots.
func (m *Manager) RecordIteration(id string, it models.FixIteration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status.IsTerminal() {
		return transitionError(r.status, r.status)
	}
	r.history = append(r.history, it)
	return nil
}

// Complete moves a running task to completed and stores its result.
func (m *Manager) Complete(id string, result *models.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status != models.StatusRunning {
		return transitionError(r.status, models.StatusCompleted)
	}
	now := time.Now()
	r.status = models.StatusCompleted
	r.progress = 100
	r.step = ""
	r.result = result
	r.completedAt = &now
	r.cancel = nil
	return nil
}

// Fail moves a running task to failed and stores the error message.
func (m *Manager) Fail(id string, taskErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status != models.StatusRunning {
		return transitionError(r.status, models.StatusFailed)
	}
	now := time.Now()
	r.status = models.StatusFailed
	if taskErr != nil {
		r.errMsg = taskErr.Error()
	}
	r.completedAt = &now
	r.cancel = nil
	return nil
}

// Pause suspends a running task. The worker parks at its next Checkpoint.
func (m *Manager) Pause(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status != models.StatusRunning {
		return transitionError(r.status, models.StatusPaused)
	}
	r.status = models.StatusPaused
	return nil
}

// Resume releases a paused task. Parked workers wake via the condition
// variable.
func (m *Manager) Resume(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status != models.StatusPaused {
		return transitionError(r.status, models.StatusRunning)
	}
	r.status = models.StatusRunning
	m.cond.Broadcast()
	return nil
}

// Cancel aborts a pending, running, or paused task. The worker context is
// cancelled to cut short any in-flight provider call, and parked workers are
// woken so Checkpoint can report the cancellation.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.status.IsTerminal() {
		return transitionError(r.status, models.StatusCancelled)
	}
	now := time.Now()
	r.status = models.StatusCancelled
	r.completedAt = &now
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	m.cond.Broadcast()
	return nil
}

// Remove deletes a terminal task. Live tasks must be cancelled first.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	if !r.status.IsTerminal() {
		return transitionError(r.status, r.status)
	}
	delete(m.tasks, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Checkpoint is the worker's cooperative suspension point. It returns nil
// while the task runs, blocks while it is paused, and returns ErrCancelled
// once it is cancelled.
func (m *Manager) Checkpoint(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		r, ok := m.tasks[id]
		if !ok {
			return models.ErrNotFound
		}
		switch r.status {
		case models.StatusPaused:
			m.cond.Wait()
		case models.StatusCancelled:
			return models.ErrCancelled
		default:
			return nil
		}
	}
}

// Get returns a snapshot of one task.
func (m *Manager) Get(id string) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return models.Task{}, models.ErrNotFound
	}
	return r.snapshot(time.Now()), nil
}

// List returns snapshots of every task in insertion order.
func (m *Manager) List() []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := make([]models.Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id].snapshot(now))
	}
	return out
}

// ClearCompleted prunes terminal tasks that finished more than olderThan ago
// and returns how many were removed. olderThan zero removes every terminal
// task.
func (m *Manager) ClearCompleted(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	kept := m.order[:0]
	for _, id := range m.order {
		r := m.tasks[id]
		if r.status.IsTerminal() && r.completedAt != nil && !r.completedAt.After(cutoff) {
			delete(m.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed
}

func transitionError(from, to models.Status) error {
	if from == to {
		return fmt.Errorf("task is %s: %w", from, models.ErrInvalidState)
	}
	return fmt.Errorf("cannot move %s task to %s: %w", from, to, models.ErrInvalidState)
}

// snapshot copies the record into the wire representation. Caller holds the
// lock.
func (r *record) snapshot(now time.Time) models.Task {
	t := models.Task{
		ID:         r.id,
		Kind:       r.kind,
		Status:     r.status,
		Progress:   r.progress,
		Step:       r.step,
		Error:      r.errMsg,
		Iterations: len(r.history),
		CreatedAt:  r.createdAt,
		StartedAt:  r.startedAt,
	}
	if r.result != nil {
		res := *r.result
		t.Result = &res
	}
	if len(r.history) > 0 {
		t.FixHistory = append([]models.FixIteration(nil), r.history...)
	}
	if r.completedAt != nil {
		c := *r.completedAt
		t.CompletedAt = &c
	}
	t.ElapsedSeconds = r.elapsedSeconds(now)
	if eta := r.estimatedRemaining(); eta != nil {
		t.EstimatedRemaining = eta
	}
	return t
}

// elapsedSeconds computes wall-clock seconds for a task based on its state:
// queue wait while pending, work time so far while running or paused, and
// start-to-finish once terminal.
func (r *record) elapsedSeconds(now time.Time) float64 {
	switch {
	case r.startedAt == nil:
		if r.completedAt != nil { // cancelled before starting
			return 0
		}
		return now.Sub(r.createdAt).Seconds()
	case r.completedAt != nil:
		return r.completedAt.Sub(*r.startedAt).Seconds()
	default:
		return now.Sub(*r.startedAt).Seconds()
	}
}

// estimatedRemaining projects the average iteration duration over the
// attempts left. Nil until at least one iteration has finished, and for
// terminal tasks.
func (r *record) estimatedRemaining() *float64 {
	if len(r.history) == 0 || r.status.IsTerminal() || r.maxIterations <= 0 {
		return nil
	}
	var total time.Duration
	for _, it := range r.history {
		total += it.Duration
	}
	left := r.maxIterations - len(r.history)
	if left < 0 {
		left = 0
	}
	avg := total / time.Duration(len(r.history))
	eta := (avg * time.Duration(left)).Seconds()
	return &eta
}
