// Package replygen generates short conversational replies from a language
// model backend. The [Generator] interface abstracts the backend; [Ollama]
// talks to a local Ollama daemon and [OpenAI] to any OpenAI-compatible
// API. [Resilient] layers retries and a circuit breaker over either.
package replygen

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the backend cannot be reached at all —
// either every retry failed or the circuit breaker is open. Callers use it
// to distinguish "try again later" from a malformed request.
var ErrUnavailable = errors.New("replygen: language model unavailable")

// Request describes one reply to generate.
type Request struct {
	// UserText is the user's utterance. Must be non-empty after trimming.
	UserText string

	// SystemPrompt sets the assistant persona. May be empty.
	SystemPrompt string

	// Model overrides the generator's default model when non-empty.
	Model string
}

// Generator produces a reply for a single user utterance.
type Generator interface {
	GenerateReply(ctx context.Context, req Request) (string, error)
}

// ModelLister reports the models a backend currently serves. Optional;
// backends that cannot enumerate models simply don't implement it.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// BackendError wraps a failure from a specific backend so callers can log
// which backend misbehaved.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("replygen: %s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
