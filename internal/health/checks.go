package health

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Availabler reports whether a remote backend is reachable. Satisfied by
// the Ollama reply generator.
type Availabler interface {
	Available(ctx context.Context) bool
}

// Backend checks that a remote generation backend answers.
func Backend(name string, a Availabler) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			if !a.Available(ctx) {
				return fmt.Errorf("%s unreachable", name)
			}
			return nil
		},
	}
}

// Model checks that a locally loaded model is ready, e.g. the whisper
// transcription model.
func Model(name string, loaded func() bool) Checker {
	return Checker{
		Name: name,
		Check: func(_ context.Context) error {
			if !loaded() {
				return errors.New("model not loaded")
			}
			return nil
		},
	}
}

// Dir checks that a required directory exists, e.g. the piper voices
// directory.
func Dir(name, path string) Checker {
	return Checker{
		Name: name,
		Check: func(_ context.Context) error {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", path)
			}
			return nil
		},
	}
}
