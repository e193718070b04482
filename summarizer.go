// summarizer.go compresses over-long action-trace lines with a small local
// model so they can still be narrated instead of dropped. Optional: with no
// model configured the translator falls back to dropping long lines, keeping
// the orchestrator free of any hard LLM dependency.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const summaryPrompt = "Compress the following browser-automation trace entry into one short " +
	"status line (at most 20 words). Reply with the line only, no preamble.\n\n"

// lineSummarizer produces a one-line summary of a trace entry.
type lineSummarizer interface {
	summarize(ctx context.Context, line string) (string, error)
}

// ollamaSummarizer calls a local Ollama instance. Each call carries its own
// timeout so a slow model can never stall the progress log for long.
type ollamaSummarizer struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// newOllamaSummarizer returns nil (no summarizer) when no model is
// configured. Host falls back to OLLAMA_HOST and then the Ollama default.
func newOllamaSummarizer(cfg SummarizerConfig) (*ollamaSummarizer, error) {
	if cfg.Model == "" {
		return nil, nil
	}

	var client *api.Client
	if cfg.Host != "" {
		base, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parse summarizer host %q: %w", cfg.Host, err)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("summarizer client from environment: %w", err)
		}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ollamaSummarizer{client: client, model: cfg.Model, timeout: timeout}, nil
}

func (s *ollamaSummarizer) summarize(ctx context.Context, line string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  s.model,
		Prompt: summaryPrompt + line,
		Stream: &stream,
	}

	var sb strings.Builder
	err := s.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	// Keep the summary within narration length no matter what the model did.
	summary := strings.TrimSpace(sb.String())
	if len(summary) > narrationLimit {
		summary = summary[:narrationLimit]
	}
	return summary, nil
}
