// Package transcribe runs speech-to-text inference over complete
// utterances. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

const defaultLanguage = "en"

// Transcriber converts a complete utterance of mono float32 samples into
// text. Implementations may serialize calls internally.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Compile-time assertion that Whisper satisfies Transcriber.
var _ Transcriber = (*Whisper)(nil)

// Whisper implements Transcriber using the whisper.cpp Go bindings (CGO).
// The model is loaded once at startup and shared across all connections;
// inference runs one utterance at a time under an internal lock, so a slow
// transcription from one connection delays the others rather than
// competing for CPU.
type Whisper struct {
	model    whisperlib.Model
	language string

	// Serializes inference. Whisper contexts are cheap but not
	// thread-safe, and concurrent Process calls thrash the CPU.
	mu sync.Mutex
}

// Option is a functional option for configuring a Whisper transcriber.
type Option func(*Whisper)

// WithLanguage sets the BCP-47 language code for transcription (e.g.,
// "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(w *Whisper) { w.language = lang }
}

// New loads the whisper.cpp model from the given file path. The caller
// must call Close when the transcriber is no longer needed.
func New(modelPath string, opts ...Option) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("transcribe: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load model %q: %w", modelPath, err)
	}

	w := &Whisper{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Loaded reports whether the underlying model is available. Used by
// readiness checks.
func (w *Whisper) Loaded() bool {
	return w.model != nil
}

// Close releases the whisper model.
func (w *Whisper) Close() error {
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}

// Transcribe runs inference over a complete utterance and returns the
// concatenated segment text, trimmed. An empty string with a nil error
// means whisper heard nothing worth reporting.
func (w *Whisper) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("transcribe: context already cancelled: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return "", errors.New("transcribe: model is closed")
	}

	// Each inference gets a fresh context from the shared model. Contexts
	// are not thread-safe; the model is.
	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if err := wctx.SetLanguage(w.language); err != nil {
		slog.Warn("failed to set whisper language, using default", "language", w.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
