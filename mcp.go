// mcp.go exposes the orchestrator as MCP tools over stdio, so an LLM
// operator can submit, watch, and stop browser runs without the HTTP
// surface. Served by the `mcp` subcommand against the same process state.
package main

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// SubmitJobArgs is the input for the submit_job tool.
type SubmitJobArgs struct {
	Intent string `json:"intent" jsonschema:"Job kind: collect_amazon_products, generate_personas, or discover_trends"`
	// Args carries the kind-specific parameters, same shape as the HTTP
	// /run body's args field.
	Args map[string]any `json:"args,omitempty" jsonschema:"Kind-specific parameters"`
}

// SubmitJobOutput reports the submission result. Runs are always detached
// over MCP; poll with check_tasks and fetch with get_result.
type SubmitJobOutput struct {
	Status  string `json:"status"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// CheckTasksArgs is the input for the check_tasks tool.
type CheckTasksArgs struct {
	// TaskIDs filters to specific tasks. Empty returns all tasks.
	TaskIDs []string `json:"task_ids,omitempty" jsonschema:"Filter to specific task IDs. Empty returns all."`
	// State filters to tasks in a matching state.
	State string `json:"state,omitempty" jsonschema:"Filter tasks by state: pending, running, completed, failed, cancelled"`
}

// CheckTasksOutput contains a compact summary plus individual task statuses.
type CheckTasksOutput struct {
	Summary TaskCounts       `json:"summary"`
	Tasks   []TaskStatusView `json:"tasks"`
}

// TaskCounts provides aggregate counts across all matched tasks.
type TaskCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// TaskStatusView is the per-task view in check_tasks. Intentionally omits
// log lines and item payloads; use get_result for those.
type TaskStatusView struct {
	ID             string `json:"id"`
	Intent         string `json:"intent"`
	State          string `json:"state"`
	Error          string `json:"error,omitempty"`
	LogLines       int    `json:"log_lines"`
	Items          int    `json:"items"`
	ElapsedSeconds int    `json:"elapsed_seconds"` // wall-clock seconds (meaning varies by state)
}

// GetResultArgs is the input for the get_result tool.
type GetResultArgs struct {
	TaskIDs []string `json:"task_ids" jsonschema:"Task IDs to retrieve full results for"`
}

// GetResultOutput contains the full outcome for each requested task.
type GetResultOutput struct {
	Results []TaskResultView `json:"results"`
}

// TaskResultView includes the full terminal outcome for a single task.
// Outcome is absent while the task is still live.
type TaskResultView struct {
	ID      string      `json:"id"`
	Intent  string      `json:"intent,omitempty"`
	State   string      `json:"state"`
	Outcome *RunOutcome `json:"outcome,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CancelTasksArgs is the input for the cancel_tasks tool.
type CancelTasksArgs struct {
	// TaskIDs cancels specific tasks. Empty cancels every running task.
	TaskIDs []string `json:"task_ids,omitempty" jsonschema:"Specific task IDs to cancel. Empty cancels all running tasks."`
}

// CancelTasksOutput reports which tasks were actually signalled.
type CancelTasksOutput struct {
	Stopped []string `json:"stopped"`
}

// mcpBackend adapts the registry and runner to MCP tool handlers.
type mcpBackend struct {
	cfg    *Config
	reg    *Registry
	runner *Runner
	log    *zap.Logger
}

func (b *mcpBackend) submitJob(ctx context.Context, req *mcp.CallToolRequest, args SubmitJobArgs) (*mcp.CallToolResult, SubmitJobOutput, error) {
	kind, ok := jobKinds[args.Intent]
	if !ok {
		return nil, SubmitJobOutput{
			Status:  "unsupported_intent",
			Message: "supported intents: collect_amazon_products, generate_personas, discover_trends",
		}, nil
	}
	params := kind.NewParams()
	if args.Args != nil {
		raw, err := json.Marshal(args.Args)
		if err != nil {
			return nil, SubmitJobOutput{Status: "invalid_args", Message: err.Error()}, nil
		}
		if err := json.Unmarshal(raw, params); err != nil {
			return nil, SubmitJobOutput{Status: "invalid_args", Message: err.Error()}, nil
		}
	}
	if err := params.validate(b.cfg); err != nil {
		return nil, SubmitJobOutput{Status: "invalid_args", Message: err.Error()}, nil
	}
	id := b.runner.SubmitDetached(kind, params)
	return nil, SubmitJobOutput{Status: "started", TaskID: id}, nil
}

func (b *mcpBackend) checkTasks(ctx context.Context, req *mcp.CallToolRequest, args CheckTasksArgs) (*mcp.CallToolResult, CheckTasksOutput, error) {
	counts, tasks := b.reg.Summary(args.TaskIDs, args.State)
	return nil, CheckTasksOutput{Summary: counts, Tasks: tasks}, nil
}

func (b *mcpBackend) getResult(ctx context.Context, req *mcp.CallToolRequest, args GetResultArgs) (*mcp.CallToolResult, GetResultOutput, error) {
	return nil, GetResultOutput{Results: b.reg.Results(args.TaskIDs)}, nil
}

func (b *mcpBackend) cancelTasks(ctx context.Context, req *mcp.CallToolRequest, args CancelTasksArgs) (*mcp.CallToolResult, CancelTasksOutput, error) {
	var stopped []string
	if len(args.TaskIDs) == 0 {
		stopped = b.reg.CancelAll()
	} else {
		stopped = make([]string, 0, len(args.TaskIDs))
		for _, id := range args.TaskIDs {
			if ok, err := b.reg.RequestCancel(id); err == nil && ok {
				stopped = append(stopped, id)
			}
		}
	}
	b.log.Info("cancel_tasks tool",
		zap.Int("requested", len(args.TaskIDs)),
		zap.Int("stopped", len(stopped)))
	return nil, CancelTasksOutput{Stopped: stopped}, nil
}

// newMCPServer registers the orchestrator tools.
func newMCPServer(cfg *Config, reg *Registry, runner *Runner, log *zap.Logger) *mcp.Server {
	b := &mcpBackend{cfg: cfg, reg: reg, runner: runner, log: log}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "affiliagent-browserbot",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_job",
		Description: "Submit a browser-automation job. Always runs in the background; returns a task id.",
	}, b.submitJob)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_tasks",
		Description: "Poll task status: aggregate counts plus per-task state and elapsed time.",
	}, b.checkTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_result",
		Description: "Retrieve the full terminal outcome for specific tasks.",
	}, b.getResult)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_tasks",
		Description: "Request cooperative cancellation of tasks. Empty task_ids cancels every running task.",
	}, b.cancelTasks)

	return server
}

// serveMCP runs the MCP server over stdio until ctx is done.
func serveMCP(ctx context.Context, cfg *Config, reg *Registry, runner *Runner, log *zap.Logger) error {
	return newMCPServer(cfg, reg, runner, log).Run(ctx, &mcp.StdioTransport{})
}
