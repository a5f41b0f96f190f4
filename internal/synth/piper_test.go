package synth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeVoice(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".onnx"), []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".onnx.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveVoice(t *testing.T) {
	dir := t.TempDir()
	writeVoice(t, dir, "amy")

	model, config, err := ResolveVoice(dir, "amy")
	if err != nil {
		t.Fatalf("ResolveVoice() error = %v", err)
	}
	if model != filepath.Join(dir, "amy.onnx") {
		t.Errorf("model = %q", model)
	}
	if config != filepath.Join(dir, "amy.onnx.json") {
		t.Errorf("config = %q", config)
	}
}

func TestResolveVoiceMissing(t *testing.T) {
	dir := t.TempDir()
	_, _, err := ResolveVoice(dir, "ghost")
	if !errors.Is(err, ErrVoiceNotFound) {
		t.Errorf("error = %v, want ErrVoiceNotFound", err)
	}
}

func TestResolveVoiceMissingConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "amy.onnx"), []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := ResolveVoice(dir, "amy")
	if !errors.Is(err, ErrVoiceNotFound) {
		t.Errorf("error = %v, want ErrVoiceNotFound when config missing", err)
	}
}

func TestListVoices(t *testing.T) {
	dir := t.TempDir()
	writeVoice(t, dir, "amy")
	writeVoice(t, dir, "ryan")

	voices, err := ListVoices(dir)
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("ListVoices() = %v, want 2 voices", voices)
	}
	found := map[string]bool{}
	for _, v := range voices {
		found[v] = true
	}
	if !found["amy"] || !found["ryan"] {
		t.Errorf("ListVoices() = %v, want amy and ryan", voices)
	}
}

func TestListVoicesMissingDir(t *testing.T) {
	voices, err := ListVoices(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != 0 {
		t.Errorf("ListVoices() = %v, want empty", voices)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	p := NewPiper()
	if _, err := p.Synthesize(context.Background(), "   ", VoiceParams{}); err == nil {
		t.Error("Synthesize(blank) error = nil, want error")
	}
}

func TestSynthesizeMissingModel(t *testing.T) {
	p := NewPiper()
	_, err := p.Synthesize(context.Background(), "hello", VoiceParams{
		ModelPath:  "/nonexistent/voice.onnx",
		ConfigPath: "/nonexistent/voice.onnx.json",
	})
	if err == nil {
		t.Error("Synthesize() error = nil, want error for missing model")
	}
}

// TestSynthesizeWithFakeBinary drives the full process path using a shell
// script that mimics piper: it reads stdin and writes fixed bytes to the
// path given by -f.
func TestSynthesizeWithFakeBinary(t *testing.T) {
	dir := t.TempDir()
	writeVoice(t, dir, "amy")
	model, config, err := ResolveVoice(dir, "amy")
	if err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(dir, "fake-piper")
	body := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-f" ]; then out="$2"; fi
  shift
done
cat > /dev/null
printf 'RIFFWAVE' > "$out"
`
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	p := NewPiper(WithBinary(script))
	wav, err := p.Synthesize(context.Background(), "hello world", VoiceParams{
		ModelPath:   model,
		ConfigPath:  config,
		LengthScale: 1.0,
		NoiseScale:  0.667,
		NoiseW:      0.8,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(wav) != "RIFFWAVE" {
		t.Errorf("wav = %q, want fake output", wav)
	}
}

func TestSynthesizeProcessFailure(t *testing.T) {
	dir := t.TempDir()
	writeVoice(t, dir, "amy")
	model, config, err := ResolveVoice(dir, "amy")
	if err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(dir, "broken-piper")
	body := "#!/bin/sh\ncat > /dev/null\necho 'missing espeak data' >&2\nexit 3\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	p := NewPiper(WithBinary(script))
	_, err = p.Synthesize(context.Background(), "hello", VoiceParams{
		ModelPath:  model,
		ConfigPath: config,
	})
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProcessError", err)
	}
	if pe.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", pe.ExitCode)
	}
	if pe.Stderr != "missing espeak data" {
		t.Errorf("Stderr = %q", pe.Stderr)
	}
}
