package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.ChunkMillis <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_ms %d must be positive", cfg.Audio.ChunkMillis))
	}

	// Client
	if cfg.Client.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("client.silence_rms_threshold %v must not be negative", cfg.Client.SilenceThreshold))
	}
	if cfg.Client.QueueMax <= 0 {
		errs = append(errs, fmt.Errorf("client.queue_max %d must be positive", cfg.Client.QueueMax))
	}
	if cfg.Client.SilenceTailFrames < 0 {
		errs = append(errs, fmt.Errorf("client.silence_tail_frames %d must not be negative", cfg.Client.SilenceTailFrames))
	}
	if cfg.Client.UtteranceCooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("client.utterance_cooldown_seconds %v must not be negative", cfg.Client.UtteranceCooldownSeconds))
	}

	// STT
	if cfg.STT.MinUtteranceSeconds < 0 {
		errs = append(errs, fmt.Errorf("stt.min_utterance_seconds %v must not be negative", cfg.STT.MinUtteranceSeconds))
	}
	if cfg.STT.MaxUtteranceSeconds <= 0 {
		errs = append(errs, fmt.Errorf("stt.max_utterance_seconds %v must be positive", cfg.STT.MaxUtteranceSeconds))
	}
	if cfg.STT.MaxBufferSeconds < cfg.STT.MaxUtteranceSeconds {
		errs = append(errs, fmt.Errorf("stt.max_buffer_seconds %v must be at least max_utterance_seconds %v",
			cfg.STT.MaxBufferSeconds, cfg.STT.MaxUtteranceSeconds))
	}

	// TTS
	if cfg.TTS.Backend != "" && !cfg.TTS.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("tts.backend %q is invalid; valid values: ollama, openai", cfg.TTS.Backend))
	}
	if cfg.TTS.Backend == BackendOpenAI && cfg.TTS.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("tts.openai_api_key is required when tts.backend is openai"))
	}
	if cfg.TTS.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("tts.retry_attempts %d must be positive", cfg.TTS.RetryAttempts))
	}
	if cfg.TTS.SpeakerID < 0 {
		errs = append(errs, fmt.Errorf("tts.speaker_id %d must not be negative", cfg.TTS.SpeakerID))
	}
	if cfg.TTS.LengthScale < 0.1 || cfg.TTS.LengthScale > 2.0 {
		errs = append(errs, fmt.Errorf("tts.length_scale %v is out of range [0.1, 2.0]", cfg.TTS.LengthScale))
	}
	if cfg.TTS.NoiseScale < 0 || cfg.TTS.NoiseScale > 1 {
		errs = append(errs, fmt.Errorf("tts.noise_scale %v is out of range [0.0, 1.0]", cfg.TTS.NoiseScale))
	}
	if cfg.TTS.NoiseW < 0 || cfg.TTS.NoiseW > 1 {
		errs = append(errs, fmt.Errorf("tts.noise_w %v is out of range [0.0, 1.0]", cfg.TTS.NoiseW))
	}
	if cfg.TTS.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("tts.max_concurrent %d must be positive", cfg.TTS.MaxConcurrent))
	}

	return errors.Join(errs...)
}
