// Package synth turns reply text into speech by shelling out to the piper
// TTS binary. Piper reads text on stdin and writes a WAV file; every call
// spawns a fresh short-lived process, so the package holds no state beyond
// configuration.
package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrVoiceNotFound is returned when a requested voice has no model file in
// the voices directory.
var ErrVoiceNotFound = errors.New("synth: voice not found")

// ProcessError reports a piper process that exited non-zero, with its
// stderr output for diagnosis.
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("synth: piper failed with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("synth: piper exited with code %d", e.ExitCode)
}

// VoiceParams are the per-request synthesis knobs piper accepts.
type VoiceParams struct {
	// ModelPath and ConfigPath select the voice. Both must exist.
	ModelPath  string
	ConfigPath string

	// SpeakerID selects a speaker within multi-speaker models.
	SpeakerID int

	// LengthScale controls speed; 1.0 is normal, larger is slower.
	LengthScale float64

	// NoiseScale controls voice variance.
	NoiseScale float64

	// NoiseW controls phoneme-width noise (voice stability).
	NoiseW float64
}

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, params VoiceParams) ([]byte, error)
}

// Compile-time assertion that Piper satisfies Synthesizer.
var _ Synthesizer = (*Piper)(nil)

// Piper synthesizes speech via the piper executable.
type Piper struct {
	bin     string
	timeout time.Duration
}

// PiperOption is a functional option for configuring a Piper synthesizer.
type PiperOption func(*Piper)

// WithBinary overrides the piper executable path. Defaults to "piper"
// resolved via PATH.
func WithBinary(bin string) PiperOption {
	return func(p *Piper) { p.bin = bin }
}

// WithTimeout bounds each synthesis process. Defaults to 30s.
func WithTimeout(d time.Duration) PiperOption {
	return func(p *Piper) { p.timeout = d }
}

// NewPiper creates a Piper synthesizer.
func NewPiper(opts ...PiperOption) *Piper {
	p := &Piper{
		bin:     "piper",
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize runs piper over text and returns the resulting WAV bytes.
// The process is killed if it outlives the configured timeout or ctx.
func (p *Piper) Synthesize(ctx context.Context, text string, params VoiceParams) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("synth: empty text")
	}
	if _, err := os.Stat(params.ModelPath); err != nil {
		return nil, fmt.Errorf("synth: model file %q: %w", params.ModelPath, err)
	}
	if _, err := os.Stat(params.ConfigPath); err != nil {
		return nil, fmt.Errorf("synth: config file %q: %w", params.ConfigPath, err)
	}

	// Piper writes its output to a file, not stdout.
	tmp, err := os.CreateTemp("", "synth-*.wav")
	if err != nil {
		return nil, fmt.Errorf("synth: create temp file: %w", err)
	}
	outPath := tmp.Name()
	tmp.Close()
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin,
		"-m", params.ModelPath,
		"-c", params.ConfigPath,
		"--speaker", strconv.Itoa(params.SpeakerID),
		"--length-scale", strconv.FormatFloat(params.LengthScale, 'f', -1, 64),
		"--noise-scale", strconv.FormatFloat(params.NoiseScale, 'f', -1, 64),
		"--noise-w", strconv.FormatFloat(params.NoiseW, 'f', -1, 64),
		"-f", outPath,
	)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("running piper", "bin", p.bin, "model", params.ModelPath)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("synth: piper timed out after %s: %w", p.timeout, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ProcessError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return nil, fmt.Errorf("synth: run piper: %w", err)
	}

	wav, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("synth: read piper output: %w", err)
	}
	slog.Debug("piper synthesis complete", "bytes", len(wav))
	return wav, nil
}

// ResolveVoice maps a voice name to its model and config files under dir.
// Returns [ErrVoiceNotFound] when either file is missing.
func ResolveVoice(dir, name string) (modelPath, configPath string, err error) {
	modelPath = filepath.Join(dir, name+".onnx")
	configPath = modelPath + ".json"
	if _, err := os.Stat(modelPath); err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrVoiceNotFound, name)
	}
	if _, err := os.Stat(configPath); err != nil {
		return "", "", fmt.Errorf("%w: %s (missing config)", ErrVoiceNotFound, name)
	}
	return modelPath, configPath, nil
}

// ListVoices returns the voice names available in dir, derived from the
// *.onnx model files present. A missing directory yields an empty list.
func ListVoices(dir string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.onnx"))
	if err != nil {
		return nil, fmt.Errorf("synth: list voices: %w", err)
	}
	voices := make([]string, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(filepath.Base(e), ".onnx")
		if name != "" {
			voices = append(voices, name)
		}
	}
	return voices, nil
}
