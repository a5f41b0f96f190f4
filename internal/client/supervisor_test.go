package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingRunner fails every run and cancels the context after a fixed
// number of attempts.
type countingRunner struct {
	runs   int
	limit  int
	cancel context.CancelFunc
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.runs++
	if r.runs >= r.limit {
		r.cancel()
	}
	return errors.New("connection refused")
}

func TestSupervisorRestartsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &countingRunner{limit: 3, cancel: cancel}
	sup := NewSupervisor(runner, NewMetrics(), time.Millisecond)

	err := sup.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if runner.runs != 3 {
		t.Errorf("runs = %d, want 3", runner.runs)
	}
}

func TestSupervisorStopsImmediatelyOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &countingRunner{limit: 1, cancel: cancel}
	sup := NewSupervisor(runner, NewMetrics(), time.Hour)

	// The runner cancels during its first run; the supervisor must not
	// wait out the reconnect delay afterwards.
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after context cancellation")
	}
}
