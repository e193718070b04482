// trace.go translates the agent's action trace into progress-log entries.
//
// Classification policy, in order:
//  1. a line containing a URL is logged as a page visit and the URL is
//     recorded in the visited-pages accumulator
//  2. a line at or under the narration threshold is logged verbatim
//  3. a longer line is summarized when a summarizer is configured,
//     otherwise dropped
//
// The categories and their ordering are the contract; the threshold and the
// URL pattern are tunables.
package main

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// narrationLimit is the maximum length of a trace line that is passed
// through verbatim.
const narrationLimit = 200

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\)\]]+`)

// traceTranslator applies the classification policy and writes the results
// into one task's progress log.
type traceTranslator struct {
	reg        *Registry
	summarizer lineSummarizer // nil disables summarization
	log        *zap.Logger
}

func newTraceTranslator(reg *Registry, summarizer lineSummarizer, log *zap.Logger) *traceTranslator {
	return &traceTranslator{reg: reg, summarizer: summarizer, log: log}
}

// ingest classifies one trace line for the given task. Lines are processed
// in call order, so log ordering mirrors the agent's reporting order.
func (t *traceTranslator) ingest(ctx context.Context, taskID, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if url := urlPattern.FindString(line); url != "" {
		t.append(taskID, "visited "+url)
		if err := t.reg.AppendPage(taskID, url); err != nil {
			t.log.Warn("record visited page", zap.String("task_id", taskID), zap.Error(err))
		}
		return
	}

	if len(line) <= narrationLimit {
		t.append(taskID, line)
		return
	}

	if t.summarizer == nil {
		return // drop: too long to narrate, nothing to compress it with
	}
	summary, err := t.summarizer.summarize(ctx, line)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			t.log.Debug("trace summarization failed, dropping line",
				zap.String("task_id", taskID), zap.Error(err))
		}
		return
	}
	t.append(taskID, strings.TrimSpace(summary))
}

func (t *traceTranslator) append(taskID, line string) {
	if err := t.reg.AppendProgress(taskID, line); err != nil {
		t.log.Warn("append progress", zap.String("task_id", taskID), zap.Error(err))
	}
}
