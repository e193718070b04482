// registry.go implements the thread-safe, in-memory task registry.
//
// HTTP handlers, MCP tool handlers, and runner goroutines all go through the
// registry; its mutex is the synchronization boundary for task metadata.
// State is ephemeral: entries live for the duration of the process and are
// never evicted, which is acceptable for a best-effort service but does mean
// the map grows without bound under sustained submission.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errNotFound          = errors.New("task not found")
	errInvalidTransition = errors.New("invalid task state transition")
	errNotFinished       = errors.New("task not finished")
)

// Registry holds all tasks in memory, protected by a mutex. Tasks are stored
// in a map for O(1) lookup and a separate slice to preserve insertion order
// for stable iteration in ListRunning/Summary.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
	order []string // insertion order for stable iteration
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
	}
}

// Create allocates a fresh task in pending state and returns its id. The id
// doubles as the polling token, so it must be unguessable as well as unique;
// a random UUID covers both. An initial log line is recorded so pollers see
// a non-empty log immediately after submission.
func (r *Registry) Create(intent string) (string, *runHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	now := time.Now()
	t := &Task{
		ID:        id,
		Intent:    intent,
		State:     StatePending,
		CreatedAt: now,
		handle:    newRunHandle(),
	}
	t.Log = append(t.Log, LogEntry{At: now, Line: "task accepted: " + intent})
	r.tasks[id] = t
	r.order = append(r.order, id)
	return id, t.handle
}

// AppendProgress appends one line to a task's progress log. Appends against
// a terminal task are dropped silently: the log is frozen with the outcome.
func (r *Registry) AppendProgress(id, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}
	if t.State.Terminal() {
		return nil
	}
	t.Log = append(t.Log, LogEntry{At: time.Now(), Line: line})
	return nil
}

// AppendItems adds discovered items to a task's structured accumulator.
func (r *Registry) AppendItems(id string, items []json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}
	if t.State.Terminal() {
		return nil
	}
	t.Items = append(t.Items, items...)
	return nil
}

// AppendPage records a visited page URL.
func (r *Registry) AppendPage(id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}
	if t.State.Terminal() {
		return nil
	}
	t.Pages = append(t.Pages, url)
	return nil
}

// MarkRunning transitions a task from pending to running. Any other starting
// state is an orchestrator bug and fails with errInvalidTransition; in
// particular a task cancelled while pending must never be marked running.
func (r *Registry) MarkRunning(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}
	if t.State != StatePending {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, t.State, StateRunning)
	}
	t.State = StateRunning
	t.StartedAt = time.Now()
	return nil
}

// Finish records the terminal state and outcome for a task. Only terminal
// target states are accepted, and a task that is already terminal is never
// overwritten. The outcome is set if and only if the task ends up terminal.
//
// An acknowledged cancel always wins: the flag is re-checked here, under the
// same lock RequestCancel takes, so a cancel that lands after the runner's
// last flag read but before the terminal state is recorded still ends the
// task as cancelled. Whatever the run produced is kept on the outcome.
func (r *Registry) Finish(id string, state TaskState, out *RunOutcome) error {
	if !state.Terminal() {
		return fmt.Errorf("%w: %s is not terminal", errInvalidTransition, state)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, id)
	}
	if t.State.Terminal() {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, t.State, state)
	}
	if t.CancelRequested && state != StateCancelled {
		state = StateCancelled
		if out != nil {
			out.Status = "cancelled"
		}
	}
	t.State = state
	t.Outcome = out
	t.CompletedAt = time.Now()
	t.handle = nil
	return nil
}

// RequestCancel sets the cancellation flag. Returns true if the task existed
// and was not already terminal; cancelling a finished task is a no-op, not
// an error. Cancellation is cooperative: an in-flight agent call is left
// alone, but a task still pending has its gate wait interrupted so it never
// acquires the automation gate.
func (r *Registry) RequestCancel(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", errNotFound, id)
	}
	if t.State.Terminal() {
		return false, nil
	}
	t.CancelRequested = true
	if t.State == StatePending && t.handle != nil {
		t.handle.queueCancel()
	}
	return true, nil
}

// CancelRequested reports the current value of a task's cancellation flag.
// Unknown ids read as false; the runner only asks about ids it created.
func (r *Registry) CancelRequested(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return ok && t.CancelRequested
}

// CancelAll requests cancellation of every currently running task and
// returns the ids it signalled. Zero running tasks yields an empty set.
func (r *Registry) CancelAll() []string {
	r.mu.Lock()
	running := make([]string, 0)
	for _, id := range r.order {
		if r.tasks[id].State == StateRunning {
			running = append(running, id)
		}
	}
	r.mu.Unlock()

	stopped := make([]string, 0, len(running))
	for _, id := range running {
		if ok, err := r.RequestCancel(id); err == nil && ok {
			stopped = append(stopped, id)
		}
	}
	return stopped
}

// ProgressSnapshot is a copy of a task's observable progress, safe to read
// without holding the registry lock.
type ProgressSnapshot struct {
	TaskID    string            `json:"task_id"`
	Intent    string            `json:"intent"`
	State     TaskState         `json:"state"`
	Log       []LogEntry        `json:"log"`
	Items     []json.RawMessage `json:"items"`
	Pages     []string          `json:"pages"`
	Completed bool              `json:"completed"`
}

// Progress returns a copy of a task's log and accumulator under the lock.
func (r *Registry) Progress(id string) (*ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotFound, id)
	}
	return snapshotLocked(t), nil
}

// snapshotLocked copies the mutable fields of t. Callers must hold r.mu.
func snapshotLocked(t *Task) *ProgressSnapshot {
	snap := &ProgressSnapshot{
		TaskID:    t.ID,
		Intent:    t.Intent,
		State:     t.State,
		Log:       make([]LogEntry, len(t.Log)),
		Items:     make([]json.RawMessage, len(t.Items)),
		Pages:     make([]string, len(t.Pages)),
		Completed: t.State.Terminal(),
	}
	copy(snap.Log, t.Log)
	copy(snap.Items, t.Items)
	copy(snap.Pages, t.Pages)
	return snap
}

// Result returns the terminal outcome. It fails with errNotFound for ids
// that were never issued and errNotFinished while the task is still live.
func (r *Registry) Result(id string) (*RunOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotFound, id)
	}
	if !t.State.Terminal() || t.Outcome == nil {
		return nil, fmt.Errorf("%w: %s", errNotFinished, id)
	}
	out := *t.Outcome
	return &out, nil
}

// ListRunning returns snapshots of all currently running tasks, in
// submission order.
func (r *Registry) ListRunning() []*ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snaps := make([]*ProgressSnapshot, 0)
	for _, id := range r.order {
		if t := r.tasks[id]; t.State == StateRunning {
			snaps = append(snaps, snapshotLocked(t))
		}
	}
	return snaps
}

// Summary returns aggregate counts and per-task statuses for the check_tasks
// tool. Intentionally lightweight: no log lines or item payloads. The lock
// is held for the whole walk to avoid races with runner goroutines.
func (r *Registry) Summary(ids []string, state string) (TaskCounts, []TaskStatusView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	var counts TaskCounts
	statuses := make([]TaskStatusView, 0)
	now := time.Now()

	for _, id := range r.order {
		t := r.tasks[id]
		if len(idSet) > 0 && !idSet[t.ID] {
			continue
		}
		if state != "" && string(t.State) != state {
			continue
		}
		counts.Total++
		switch t.State {
		case StatePending:
			counts.Pending++
		case StateRunning:
			counts.Running++
		case StateCompleted:
			counts.Completed++
		case StateFailed:
			counts.Failed++
		case StateCancelled:
			counts.Cancelled++
		}
		view := TaskStatusView{
			ID:             t.ID,
			Intent:         t.Intent,
			State:          string(t.State),
			LogLines:       len(t.Log),
			Items:          len(t.Items),
			ElapsedSeconds: taskElapsedSeconds(t, now),
		}
		if t.Outcome != nil {
			view.Error = t.Outcome.Error
		}
		statuses = append(statuses, view)
	}
	return counts, statuses
}

// taskElapsedSeconds computes wall-clock seconds for a task based on state.
//   - pending: seconds since created (queue wait time)
//   - running: seconds since started (automation time so far)
//   - completed/failed: seconds from start to completion
//   - cancelled: seconds from start to completion if it ran, else 0
func taskElapsedSeconds(t *Task, now time.Time) int {
	switch t.State {
	case StatePending:
		return int(now.Sub(t.CreatedAt).Seconds())
	case StateRunning:
		return int(now.Sub(t.StartedAt).Seconds())
	case StateCompleted, StateFailed:
		return int(t.CompletedAt.Sub(t.StartedAt).Seconds())
	case StateCancelled:
		if !t.StartedAt.IsZero() {
			return int(t.CompletedAt.Sub(t.StartedAt).Seconds())
		}
		return 0
	}
	return 0
}

// Results returns the full outcome for specific task ids. Used by the
// get_result MCP tool. Unknown ids yield a "not_found" entry rather than
// failing the whole call.
func (r *Registry) Results(ids []string) []TaskResultView {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]TaskResultView, 0, len(ids))
	for _, id := range ids {
		t, ok := r.tasks[id]
		if !ok {
			results = append(results, TaskResultView{
				ID:    id,
				State: "not_found",
				Error: "task not found",
			})
			continue
		}
		view := TaskResultView{
			ID:     t.ID,
			Intent: t.Intent,
			State:  string(t.State),
		}
		if t.Outcome != nil {
			out := *t.Outcome
			view.Outcome = &out
			view.Error = out.Error
		}
		results = append(results, view)
	}
	return results
}

// handleFor returns the run handle for a pending or running task, or nil.
func (r *Registry) handleFor(id string) *runHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		return t.handle
	}
	return nil
}
