// gate.go implements the mutual-exclusion gate around the one shared
// automation resource. A single browser/CDP session cannot multiplex jobs;
// two drivers navigating it concurrently corrupt each other's state, so
// exactly one run may hold the gate at a time. This is a correctness
// requirement, not a throughput knob.
package main

import (
	"context"
	"sync"
)

// AutomationGate is a one-slot lease. Acquirers queue on the channel and are
// served in arrival order on a best-effort basis; strict FIFO is not
// guaranteed, only absence of starvation.
type AutomationGate struct {
	slot chan struct{}
}

// NewAutomationGate creates a released gate.
func NewAutomationGate() *AutomationGate {
	return &AutomationGate{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the gate is free or ctx is done. The returned release
// function is idempotent, so callers can both defer it for panic safety and
// invoke it explicitly on the happy path.
func (g *AutomationGate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-g.slot })
	}, nil
}

// InUse reports whether a lease is currently outstanding.
func (g *AutomationGate) InUse() bool {
	return len(g.slot) == 1
}
