package config

import (
	"strings"
	"testing"
	"time"

	"github.com/talkback-bot/talkback/pkg/vad"
)

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Client.SilenceThreshold != 0.008 {
		t.Errorf("SilenceThreshold = %v, want 0.008", cfg.Client.SilenceThreshold)
	}
	if cfg.Client.STTURL != "ws://127.0.0.1:8765/ws/stt" {
		t.Errorf("STTURL = %q, want the /ws/stt endpoint", cfg.Client.STTURL)
	}
	if got := cfg.Client.UtteranceCooldown(); got != time.Second {
		t.Errorf("UtteranceCooldown() = %v, want 1s", got)
	}
	if cfg.STT.MaxUtteranceSeconds != 12 {
		t.Errorf("MaxUtteranceSeconds = %v, want 12", cfg.STT.MaxUtteranceSeconds)
	}
	if cfg.TTS.NoiseScale != 0.667 {
		t.Errorf("NoiseScale = %v, want 0.667", cfg.TTS.NoiseScale)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	yaml := `
log_level: debug
client:
  stt_url: ws://stt.internal:9000/ws/stt
  response_cooldown_seconds: 1.5
  utterance_cooldown_seconds: 0.5
stt:
  model_path: /models/ggml-base.en.bin
tts:
  model: mistral
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}

	if got := cfg.Client.UtteranceCooldown(); got != 500*time.Millisecond {
		t.Errorf("UtteranceCooldown() = %v, want 0.5s", got)
	}
	if cfg.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Client.STTURL != "ws://stt.internal:9000/ws/stt" {
		t.Errorf("STTURL = %q", cfg.Client.STTURL)
	}
	if got := cfg.Client.ResponseCooldown(); got != 1500*time.Millisecond {
		t.Errorf("ResponseCooldown() = %v, want 1.5s", got)
	}
	if cfg.TTS.Model != "mistral" {
		t.Errorf("Model = %q, want mistral", cfg.TTS.Model)
	}
	// Untouched sections keep defaults.
	if cfg.Client.QueueMax != 200 {
		t.Errorf("QueueMax = %d, want default 200", cfg.Client.QueueMax)
	}
}

// The client binary builds its voice gate straight from ClientConfig; the
// default cooldown must keep trailing noise from restarting capture the
// instant an utterance ends.
func TestDefaultConfigGateBlocksImmediateRestart(t *testing.T) {
	c := Default().Client
	gate := vad.New(vad.Config{
		SilenceThreshold: c.SilenceThreshold,
		SilenceMax:       c.SilenceMax(),
		MinUtterance:     c.MinUtterance(),
		Cooldown:         c.UtteranceCooldown(),
	})

	start := time.Now()
	gate.Start(start)
	end := start.Add(time.Second)
	gate.End(end)

	if gate.CanStart(end) {
		t.Error("CanStart() = true immediately after End(), want cooldown to block")
	}
	if !gate.CanStart(end.Add(c.UtteranceCooldown())) {
		t.Error("CanStart() = false after cooldown elapsed, want true")
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	yaml := `
client:
  sttt_url: ws://typo
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("LoadFromReader() error = nil, want unknown-field error")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	cfg.Audio.SampleRate = 0
	cfg.Client.UtteranceCooldownSeconds = -1
	cfg.TTS.LengthScale = 5
	cfg.TTS.MaxConcurrent = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil, want joined errors")
	}
	for _, want := range []string{"log_level", "sample_rate", "utterance_cooldown", "length_scale", "max_concurrent"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestValidateOpenAIRequiresKey(t *testing.T) {
	cfg := Default()
	cfg.TTS.Backend = BackendOpenAI

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "openai_api_key") {
		t.Errorf("Validate() error = %v, want openai_api_key requirement", err)
	}

	cfg.TTS.OpenAIAPIKey = "sk-test"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil with key set", err)
	}
}

func TestValidateBufferVsUtterance(t *testing.T) {
	cfg := Default()
	cfg.STT.MaxBufferSeconds = 5
	cfg.STT.MaxUtteranceSeconds = 12

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "max_buffer_seconds") {
		t.Errorf("Validate() error = %v, want buffer constraint failure", err)
	}
}
