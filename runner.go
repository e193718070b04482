// runner.go drives one task from submission to a terminal state: check the
// cancellation flag, take the automation gate, invoke the agent, translate
// its trace into progress, and record the outcome. Agent failures stop here;
// they become task state, never a crashed orchestrator or a leaked gate
// lease.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Runner launches and supervises job executions. One Runner serves the whole
// process; concurrency is bounded by the gate, not the runner.
type Runner struct {
	cfg   *Config
	reg   *Registry
	gate  *AutomationGate
	agent AgentInvoker
	trace *traceTranslator
	log   *zap.Logger
}

func NewRunner(cfg *Config, reg *Registry, gate *AutomationGate, agent AgentInvoker, trace *traceTranslator, log *zap.Logger) *Runner {
	return &Runner{cfg: cfg, reg: reg, gate: gate, agent: agent, trace: trace, log: log}
}

// Submit registers a task for the given kind and either runs it inline
// (sync kinds) or spawns a goroutine for it. The returned outcome is non-nil
// only for sync kinds.
func (r *Runner) Submit(kind *JobKind, params jobParams) (string, *RunOutcome) {
	return r.submit(kind, params, kind.Async)
}

// SubmitDetached always runs in the background, regardless of the kind's
// sync/async mode. Used by the MCP surface, where a tool call must not block
// for the duration of a browser run.
func (r *Runner) SubmitDetached(kind *JobKind, params jobParams) string {
	id, _ := r.submit(kind, params, true)
	return id
}

func (r *Runner) submit(kind *JobKind, params jobParams, detached bool) (string, *RunOutcome) {
	id, handle := r.reg.Create(kind.Intent)
	r.log.Info("task submitted",
		zap.String("task_id", id),
		zap.String("intent", kind.Intent),
		zap.Bool("detached", detached))

	if detached {
		go r.run(id, handle, kind, params)
		return id, nil
	}
	return id, r.run(id, handle, kind, params)
}

// run executes the full lifecycle for one task and always records exactly
// one terminal state.
func (r *Runner) run(id string, handle *runHandle, kind *JobKind, params jobParams) *RunOutcome {
	defer close(handle.done)

	// Checkpoint 1: a task cancelled before this point never touches the
	// agent or the gate.
	if r.reg.CancelRequested(id) {
		return r.finish(id, StateCancelled, &RunOutcome{
			Status: "cancelled",
			Intent: kind.Intent,
			Items:  []json.RawMessage{},
		}, "cancelled before start")
	}

	r.appendProgress(id, "waiting for the automation browser")
	release, err := r.gate.Acquire(handle.queueCtx)
	if err != nil {
		// The queue wait was interrupted by a cancellation; the gate
		// was never acquired.
		return r.finish(id, StateCancelled, &RunOutcome{
			Status: "cancelled",
			Intent: kind.Intent,
			Items:  []json.RawMessage{},
		}, "cancelled while queued")
	}
	defer release()

	// Checkpoint 2: the cancel may have landed between the flag check and
	// the queueCtx wiring; re-check now that the lease is held.
	if r.reg.CancelRequested(id) {
		release()
		return r.finish(id, StateCancelled, &RunOutcome{
			Status: "cancelled",
			Intent: kind.Intent,
			Items:  []json.RawMessage{},
		}, "cancelled while queued")
	}

	if err := r.reg.MarkRunning(id); err != nil {
		// Unreachable with correct runner discipline; fail loudly.
		r.log.Error("mark running", zap.String("task_id", id), zap.Error(err))
		release()
		return r.finish(id, StateFailed, &RunOutcome{
			Status: "failed",
			Intent: kind.Intent,
			Items:  []json.RawMessage{},
			Error:  err.Error(),
		}, "internal error: "+err.Error())
	}

	r.appendProgress(id, "invoking automation agent: "+kind.Intent)
	result, agentErr := r.agent.Run(context.Background(), AgentTask{
		Instructions: params.instructions(r.cfg),
		OutputSchema: kind.Schema,
		Trace: func(line string) {
			r.trace.ingest(context.Background(), id, line)
		},
	})

	state, outcome := r.conclude(id, kind, result, agentErr)

	// Checkpoint 3: a cancel observed any time after the run started wins
	// over completed/failed, while whatever was streamed is preserved.
	if r.reg.CancelRequested(id) {
		state = StateCancelled
		outcome.Status = "cancelled"
	}

	release()
	var lastLine string
	switch {
	case agentErr != nil:
		lastLine = "agent error: " + agentErr.Error()
	case state == StateCancelled:
		lastLine = "run finished after stop request; recorded as cancelled"
	case outcome.Status == "no_results":
		lastLine = "agent finished with no results"
	default:
		lastLine = fmt.Sprintf("agent finished with %d items", len(outcome.Items))
	}
	return r.finish(id, state, outcome, lastLine)
}

// conclude maps the agent's return into a terminal state and outcome, and
// folds any structured items into the task's accumulator.
func (r *Runner) conclude(id string, kind *JobKind, result *AgentResult, agentErr error) (TaskState, *RunOutcome) {
	if agentErr != nil {
		r.log.Error("agent run failed",
			zap.String("task_id", id),
			zap.String("intent", kind.Intent),
			zap.Error(agentErr))
		return StateFailed, &RunOutcome{
			Status: "failed",
			Intent: kind.Intent,
			Items:  []json.RawMessage{},
			Error:  agentErr.Error(),
		}
	}

	items, summary := extractItems(result.Structured, kind.ItemsKey)
	if len(items) > 0 {
		if err := r.reg.AppendItems(id, items); err != nil {
			r.log.Warn("append items", zap.String("task_id", id), zap.Error(err))
		}
	}

	status := "completed"
	if len(items) == 0 {
		// Absence of discoverable items is a valid business outcome.
		status = "no_results"
	}
	return StateCompleted, &RunOutcome{
		Status:  status,
		Intent:  kind.Intent,
		Items:   items,
		Summary: summary,
		Raw:     result.Raw,
	}
}

// extractItems pulls the kind's item array and the optional summary out of
// the agent's structured payload. A missing or malformed payload yields no
// items, which the caller reports as a no-results completion.
func extractItems(structured json.RawMessage, itemsKey string) ([]json.RawMessage, string) {
	if len(structured) == 0 {
		return []json.RawMessage{}, ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(structured, &fields); err != nil {
		return []json.RawMessage{}, ""
	}

	items := []json.RawMessage{}
	if raw, ok := fields[itemsKey]; ok {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			items = arr
		}
	}

	var summary string
	if raw, ok := fields["summary"]; ok {
		_ = json.Unmarshal(raw, &summary)
	}
	return items, summary
}

// finish appends the final log line and records the terminal state. An
// InvalidTransition here means the runner's single-writer discipline broke;
// it is logged as an orchestrator bug.
func (r *Runner) finish(id string, state TaskState, outcome *RunOutcome, lastLine string) *RunOutcome {
	r.appendProgress(id, lastLine)
	if err := r.reg.Finish(id, state, outcome); err != nil {
		r.log.Error("record terminal state",
			zap.String("task_id", id),
			zap.String("state", string(state)),
			zap.Error(err))
	}
	r.log.Info("task finished",
		zap.String("task_id", id),
		zap.String("state", string(state)),
		zap.String("status", outcome.Status),
		zap.Int("items", len(outcome.Items)))
	return outcome
}

func (r *Runner) appendProgress(id, line string) {
	if err := r.reg.AppendProgress(id, line); err != nil {
		r.log.Warn("append progress", zap.String("task_id", id), zap.Error(err))
	}
}
