package replygen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkback-bot/talkback/internal/resilience"
)

// Compile-time assertion that Resilient satisfies Generator.
var _ Generator = (*Resilient)(nil)

// RetryConfig tunes the retry loop of a [Resilient] generator.
type RetryConfig struct {
	// Attempts is the total number of tries. Default: 3.
	Attempts int

	// Backoff is the delay before the second attempt; it doubles for each
	// subsequent attempt. Default: 1s.
	Backoff time.Duration
}

// Resilient wraps a [Generator] with retries and a circuit breaker. Each
// individual attempt runs through the breaker, so a backend that keeps
// failing trips the breaker and subsequent requests fail fast with
// [ErrUnavailable] instead of burning the full retry budget.
type Resilient struct {
	inner    Generator
	breaker  *resilience.CircuitBreaker
	attempts int
	backoff  time.Duration
}

// NewResilient wraps inner with retry and circuit-breaker protection.
// A nil breaker disables breaker protection, leaving only retries.
func NewResilient(inner Generator, breaker *resilience.CircuitBreaker, cfg RetryConfig) *Resilient {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Resilient{
		inner:    inner,
		breaker:  breaker,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
	}
}

// GenerateReply tries the wrapped generator up to the configured number of
// attempts with exponential backoff. An open circuit breaker aborts the
// loop immediately.
func (r *Resilient) GenerateReply(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			wait := r.backoff << (attempt - 1)
			slog.Warn("reply generation failed, retrying",
				"attempt", attempt,
				"max_attempts", r.attempts,
				"wait", wait,
				"error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", fmt.Errorf("replygen: retry cancelled: %w", ctx.Err())
			}
		}

		var reply string
		call := func() error {
			var err error
			reply, err = r.inner.GenerateReply(ctx, req)
			return err
		}

		var err error
		if r.breaker != nil {
			err = r.breaker.Execute(call)
		} else {
			err = call()
		}

		if err == nil {
			return reply, nil
		}
		if errors.Is(err, resilience.ErrCircuitOpen) {
			// Retrying cannot help until the breaker's reset timeout.
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("replygen: generate cancelled: %w", ctx.Err())
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: %d attempts failed, last: %v", ErrUnavailable, r.attempts, lastErr)
}
