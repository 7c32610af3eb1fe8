package workflow

import (
	"context"
	"sync"
	"time"
)

type State string

const (
	StateRunning   State = "running"
	StateRejected  State = "rejected"  // never sent: bad input or budget
	StateFailed    State = "failed"    // dispatch or parse failed
	StateCompleted State = "completed" // sinks ran, possibly with an execution error
)

// Result is the terminal outcome of a task.
type Result struct {
	TaskID     string
	Model      string
	MaxTokens  int
	Text       string
	BufferName string
	// Executed is false when no script sink is configured or execution was declined.
	Executed       bool
	ExecutionError string
	Err            error
	State          State
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Task is one submitted request. Poll Finished once per host tick, or block
// in Wait.
type Task struct {
	id        string
	startedAt time.Time
	done      chan struct{}

	mu       sync.RWMutex
	finished bool
	result   Result
}

func newTask(id string) *Task {
	return &Task{id: id, startedAt: time.Now(), done: make(chan struct{})}
}

func (t *Task) ID() string { return t.id }

// Finished is the poll-style completion check.
func (t *Task) Finished() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.finished
}

// Done is closed when the task reaches its terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends. It returns the result and
// the result's error. Giving up on ctx does not stop the task.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		r, _ := t.Result()
		return r, r.Err
	case <-ctx.Done():
		return Result{TaskID: t.id, State: StateRunning, StartedAt: t.startedAt}, ctx.Err()
	}
}

// Result returns the outcome and whether it is final.
func (t *Task) Result() (Result, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.finished {
		return Result{TaskID: t.id, State: StateRunning, StartedAt: t.startedAt}, false
	}
	return t.result, true
}

func (t *Task) finish(r Result) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.result = r
	t.finished = true
	t.mu.Unlock()
	close(t.done)
}
