// agent.go defines the contract with the automation agent and the one
// adapter that talks to the browser-use bridge over HTTP. The agent itself
// is an external capability: given instruction text and an output schema it
// drives a browser autonomously and returns a structured payload plus a
// trace of the actions it took. Nothing in this process touches the browser
// directly.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AgentTask is one unit of work handed to the agent.
type AgentTask struct {
	// Instructions is the natural-language task description.
	Instructions string
	// OutputSchema is the JSON schema the structured output must match.
	OutputSchema json.RawMessage
	// Trace receives human-readable action-trace lines in the order the
	// agent reported them. May be nil when the caller has no use for them.
	Trace func(line string)
}

// AgentResult is what the agent produced.
type AgentResult struct {
	// Structured is the schema-conforming payload, nil when the agent
	// returned nothing structured.
	Structured json.RawMessage
	// Raw is the agent's unstructured final answer, if any.
	Raw string
}

// AgentInvoker runs one agent task to completion. Implementations may block
// for minutes; they must honor ctx for connection-level failures but are not
// required to support preemption of a run already in flight.
type AgentInvoker interface {
	Run(ctx context.Context, task AgentTask) (*AgentResult, error)
}

// bridgeAgent calls a browser-use bridge service. The bridge owns the LLM
// loop and the CDP connection; this adapter only shapes the request and
// normalizes the response.
type bridgeAgent struct {
	url    string
	cdpURL string
	client *http.Client
}

func newBridgeAgent(cfg AgentConfig) *bridgeAgent {
	return &bridgeAgent{
		url:    strings.TrimRight(cfg.URL, "/"),
		cdpURL: cfg.CDPURL,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

type bridgeRequest struct {
	Task         string          `json:"task"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	CDPURL       string          `json:"cdp_url,omitempty"`
}

// Run posts the task to the bridge and maps its response. The bridge's
// result shape is not stable across versions: the structured payload lives
// under "structured_output", but the action trace has been observed under
// "actions", "all_actions", "history", and "events", with entries that are
// either bare strings or objects carrying "message" or "text". All of that
// best-effort mapping is confined to this adapter.
func (a *bridgeAgent) Run(ctx context.Context, task AgentTask) (*AgentResult, error) {
	body, err := json.Marshal(bridgeRequest{
		Task:         task.Instructions,
		OutputSchema: task.OutputSchema,
		CDPURL:       a.cdpURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode bridge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call agent bridge: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read bridge response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("agent bridge returned %d: %s", resp.StatusCode, truncate(string(payload), 300))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode bridge response: %w", err)
	}

	result := &AgentResult{}
	if raw, ok := fields["structured_output"]; ok && !isJSONNull(raw) {
		result.Structured = raw
	}
	if raw, ok := fields["raw_output"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			result.Raw = s
		}
	}

	if task.Trace != nil {
		for _, line := range extractTrace(fields) {
			task.Trace(line)
		}
	}
	return result, nil
}

// extractTrace pulls the action trace out of the first key that holds a
// non-empty array, preserving entry order.
func extractTrace(fields map[string]json.RawMessage) []string {
	for _, key := range []string{"actions", "all_actions", "history", "events"} {
		raw, ok := fields[key]
		if !ok || isJSONNull(raw) {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
			continue
		}
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			if line := traceEntryText(entry); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			return lines
		}
	}
	return nil
}

// traceEntryText normalizes one trace entry to a line of text.
func traceEntryText(entry json.RawMessage) string {
	var s string
	if json.Unmarshal(entry, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Text    string `json:"text"`
	}
	if json.Unmarshal(entry, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Text != "" {
			return obj.Text
		}
	}
	return string(entry)
}

func isJSONNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
