// task.go defines the internal task representation used by the registry and
// the job runner. Not exposed directly over HTTP;
// handlers work with the snapshot copies the registry hands out.
package main

import (
	"context"
	"encoding/json"
	"time"
)

// TaskState is the lifecycle state of a browser-automation task.
//
// Lifecycle: pending -> running -> completed | failed
//
//	pending/running -> cancelled (via /stop, /stop-all, or cancel_tasks)
//
// Transitions are monotonic: once a task reaches a terminal state it never
// changes again.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateCompleted TaskState = "completed"
	StateCancelled TaskState = "cancelled"
	StateFailed    TaskState = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s TaskState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Task is the internal representation of one automation job. It tracks
// everything from submission through to the terminal outcome.
type Task struct {
	ID     string
	Intent string
	State  TaskState

	// Log is the append-only progress log. Entries keep insertion order;
	// readers always see a prefix of what later readers see.
	Log []LogEntry

	// Items and Pages form the structured accumulator: discovered items
	// (products, personas, trends) and visited page URLs. Both grow only
	// while the task is running and are frozen at the terminal state.
	Items []json.RawMessage
	Pages []string

	// CancelRequested is write-once-true. It never aborts an in-flight
	// agent call; the runner consults it at its checkpoints.
	CancelRequested bool

	// Outcome is non-nil if and only if State is terminal.
	Outcome *RunOutcome

	// handle is the back-reference to the in-flight run. Used to
	// interrupt the gate wait on cancellation and to let callers await
	// completion; the runner owns the execution, not the handle.
	handle *runHandle

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// LogEntry is one timestamped progress line.
type LogEntry struct {
	At   time.Time `json:"at"`
	Line string    `json:"line"`
}

// RunOutcome is the terminal result of a task. Status distinguishes a
// completed run that found nothing ("no_results") from a failure. An empty
// catch is a valid business outcome, not an error.
type RunOutcome struct {
	Status  string            `json:"status"` // completed, no_results, cancelled, failed
	Intent  string            `json:"intent"`
	Items   []json.RawMessage `json:"items"`
	Summary string            `json:"summary,omitempty"`
	Raw     string            `json:"raw,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// runHandle is the observable back-reference to an in-flight run. done is
// closed when the runner records a terminal state; queueCtx is cancelled by
// the registry when a still-pending task is cancelled, so a run queued on
// the automation gate wakes up without ever acquiring it.
type runHandle struct {
	done        chan struct{}
	queueCtx    context.Context
	queueCancel context.CancelFunc
}

func newRunHandle() *runHandle {
	ctx, cancel := context.WithCancel(context.Background())
	return &runHandle{
		done:        make(chan struct{}),
		queueCtx:    ctx,
		queueCancel: cancel,
	}
}

// Wait blocks until the run has recorded its terminal state.
func (h *runHandle) Wait() {
	<-h.done
}
