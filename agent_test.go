package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBridge(t *testing.T, status int, body string) (*bridgeAgent, func() []byte) {
	t.Helper()
	var capturedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	agent := newBridgeAgent(AgentConfig{URL: srv.URL, CDPURL: "http://127.0.0.1:9222"})
	return agent, func() []byte { return capturedBody }
}

func TestBridgeAgentRequestShape(t *testing.T) {
	agent, body := newTestBridge(t, http.StatusOK, `{"structured_output": null}`)

	_, err := agent.Run(context.Background(), AgentTask{
		Instructions: "find lanterns",
		OutputSchema: json.RawMessage(`{"type":"object"}`),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var req bridgeRequest
	if err := json.Unmarshal(body(), &req); err != nil {
		t.Fatalf("decode captured body: %v", err)
	}
	if req.Task != "find lanterns" {
		t.Fatalf("task not forwarded: %q", req.Task)
	}
	if req.CDPURL != "http://127.0.0.1:9222" {
		t.Fatalf("cdp url not forwarded: %q", req.CDPURL)
	}
	if string(req.OutputSchema) != `{"type":"object"}` {
		t.Fatalf("schema not forwarded: %s", req.OutputSchema)
	}
}

func TestBridgeAgentStructuredAndRaw(t *testing.T) {
	agent, _ := newTestBridge(t, http.StatusOK,
		`{"structured_output": {"products": [{"title": "a"}]}, "raw_output": "done"}`)

	res, err := agent.Run(context.Background(), AgentTask{Instructions: "x"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Structured == nil {
		t.Fatal("structured payload missing")
	}
	if res.Raw != "done" {
		t.Fatalf("raw output missing: %q", res.Raw)
	}
}

func TestBridgeAgentNullStructured(t *testing.T) {
	agent, _ := newTestBridge(t, http.StatusOK, `{"structured_output": null}`)

	res, err := agent.Run(context.Background(), AgentTask{Instructions: "x"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Structured != nil {
		t.Fatal("JSON null should read as no structured payload")
	}
}

func TestBridgeAgentErrorStatus(t *testing.T) {
	agent, _ := newTestBridge(t, http.StatusBadGateway, `browser pool exhausted`)

	_, err := agent.Run(context.Background(), AgentTask{Instructions: "x"})
	if err == nil {
		t.Fatal("expected an error on non-2xx response")
	}
}

func TestBridgeAgentTraceKeys(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []string
	}{
		{
			"string entries under actions",
			`{"actions": ["one", "two"]}`,
			[]string{"one", "two"},
		},
		{
			"message objects under history",
			`{"history": [{"message": "navigated"}, {"text": "clicked"}]}`,
			[]string{"navigated", "clicked"},
		},
		{
			"actions empty falls through to events",
			`{"actions": [], "events": ["fallback"]}`,
			[]string{"fallback"},
		},
		{
			"no trace keys",
			`{"structured_output": null}`,
			nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agent, _ := newTestBridge(t, http.StatusOK, tc.body)

			var got []string
			_, err := agent.Run(context.Background(), AgentTask{
				Instructions: "x",
				Trace:        func(line string) { got = append(got, line) },
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("trace[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestTraceEntryTextFallsBackToRawJSON(t *testing.T) {
	got := traceEntryText(json.RawMessage(`{"step": 3, "op": "scroll"}`))
	if got != `{"step": 3, "op": "scroll"}` {
		t.Fatalf("unexpected fallback: %q", got)
	}
}
