package client

import (
	"context"
	"log/slog"
	"time"
)

// sessionRunner is satisfied by *Session; tests substitute scripted runs.
type sessionRunner interface {
	Run(ctx context.Context) error
}

// Supervisor restarts the session forever with a fixed delay between
// attempts. There is no backoff and no retry cap: the client should come
// back the moment the servers do, however long the outage lasts.
type Supervisor struct {
	session sessionRunner
	metrics *Metrics
	delay   time.Duration
}

// NewSupervisor creates a Supervisor with the given reconnect delay.
func NewSupervisor(session sessionRunner, metrics *Metrics, delay time.Duration) *Supervisor {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &Supervisor{
		session: session,
		metrics: metrics,
		delay:   delay,
	}
}

// Run loops sessions until ctx is cancelled. Session errors are logged,
// never propagated: from the supervisor's point of view a dead session is
// just a reason to start the next one.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.session.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Warn("session ended", "error", err)
		} else {
			slog.Info("session ended")
		}

		s.metrics.LogSummary()

		slog.Info("reconnecting", "delay", s.delay)
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
