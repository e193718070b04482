package main

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateSingleLease(t *testing.T) {
	g := NewAutomationGate()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				old := atomic.LoadInt32(&maxInside)
				if n <= old || atomic.CompareAndSwapInt32(&maxInside, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxInside); got != 1 {
		t.Fatalf("expected at most one holder, observed %d", got)
	}
	if g.InUse() {
		t.Fatal("gate should be released after all holders finish")
	}
}

func TestGateReleaseIdempotent(t *testing.T) {
	g := NewAutomationGate()
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release() // must not free a lease it no longer holds

	release2, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !g.InUse() {
		t.Fatal("gate should be held")
	}
	release2()
}

func TestGateAcquireHonorsContext(t *testing.T) {
	g := NewAutomationGate()
	release, _ := g.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Acquire(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error while gate is held")
		}
	case <-time.After(time.Second):
		t.Fatal("queued acquire did not observe cancellation")
	}
}
