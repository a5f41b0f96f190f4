// Package config provides the configuration schema, loader, and file watcher
// for the Talkback voice pipeline services.
//
// All time-valued fields are expressed in seconds (or milliseconds where
// noted) as floats in the YAML file and exposed as [time.Duration] through
// accessor methods.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LLMBackend selects the reply generation backend for the TTS server.
type LLMBackend string

const (
	// BackendOllama talks to a local Ollama daemon.
	BackendOllama LLMBackend = "ollama"

	// BackendOpenAI talks to an OpenAI-compatible API.
	BackendOpenAI LLMBackend = "openai"
)

// IsValid reports whether b is a recognised backend.
func (b LLMBackend) IsValid() bool {
	return b == BackendOllama || b == BackendOpenAI
}

// Config is the root configuration for all three Talkback binaries. Each
// binary reads only its own section plus the shared audio block.
type Config struct {
	LogLevel LogLevel     `yaml:"log_level"`
	Audio    AudioConfig  `yaml:"audio"`
	Client   ClientConfig `yaml:"client"`
	STT      STTConfig    `yaml:"stt"`
	TTS      TTSConfig    `yaml:"tts"`
}

// AudioConfig holds the PCM format shared by the client and the STT server.
type AudioConfig struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// ChunkMillis is the capture chunk size in milliseconds.
	ChunkMillis int `yaml:"chunk_ms"`
}

// Chunk returns the chunk size as a duration.
func (a AudioConfig) Chunk() time.Duration {
	return time.Duration(a.ChunkMillis) * time.Millisecond
}

// ClientConfig configures the talkback client binary.
type ClientConfig struct {
	// STTURL is the websocket URL of the transcription server.
	STTURL string `yaml:"stt_url"`

	// TTSURL is the base URL of the TTS server.
	TTSURL string `yaml:"tts_url"`

	// SilenceThreshold is the RMS level below which a chunk counts as
	// silence, on normalized [-1, 1] samples.
	SilenceThreshold float64 `yaml:"silence_rms_threshold"`

	// SilenceMaxSeconds is how long a voice pause may last before the
	// utterance is considered finished.
	SilenceMaxSeconds float64 `yaml:"silence_max_seconds"`

	// MinUtteranceSeconds is the shortest utterance worth sending.
	MinUtteranceSeconds float64 `yaml:"min_utterance_seconds"`

	// UtteranceCooldownSeconds is the pause required after an utterance
	// ends before a new one may start, so trailing noise does not
	// immediately retrigger capture.
	UtteranceCooldownSeconds float64 `yaml:"utterance_cooldown_seconds"`

	// SilenceTailFrames is the number of silent chunks appended after an
	// utterance ends, nudging the server toward a flush.
	SilenceTailFrames int `yaml:"silence_tail_frames"`

	// QueueMax bounds the capture queue; older chunks are dropped first.
	QueueMax int `yaml:"queue_max"`

	// ResponseCooldownSeconds suppresses new replies for this long after a
	// reply finished playing.
	ResponseCooldownSeconds float64 `yaml:"response_cooldown_seconds"`

	// ReconnectDelaySeconds is the fixed wait between session restarts.
	ReconnectDelaySeconds float64 `yaml:"reconnect_delay_seconds"`

	// MetricsIntervalSeconds is how often the client logs its session
	// metrics summary. 0 disables periodic logging.
	MetricsIntervalSeconds float64 `yaml:"metrics_interval_seconds"`

	// PlayerCommand is the shell-style command WAV audio is piped to for
	// playback (e.g. "aplay -q -").
	PlayerCommand string `yaml:"player_command"`
}

// SilenceMax returns the maximum voice pause as a duration.
func (c ClientConfig) SilenceMax() time.Duration { return secondsToDuration(c.SilenceMaxSeconds) }

// MinUtterance returns the minimum utterance length as a duration.
func (c ClientConfig) MinUtterance() time.Duration {
	return secondsToDuration(c.MinUtteranceSeconds)
}

// UtteranceCooldown returns the post-utterance retrigger pause as a duration.
func (c ClientConfig) UtteranceCooldown() time.Duration {
	return secondsToDuration(c.UtteranceCooldownSeconds)
}

// ResponseCooldown returns the reply cooldown as a duration.
func (c ClientConfig) ResponseCooldown() time.Duration {
	return secondsToDuration(c.ResponseCooldownSeconds)
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c ClientConfig) ReconnectDelay() time.Duration {
	return secondsToDuration(c.ReconnectDelaySeconds)
}

// MetricsInterval returns the metrics logging interval as a duration.
func (c ClientConfig) MetricsInterval() time.Duration {
	return secondsToDuration(c.MetricsIntervalSeconds)
}

// STTConfig configures the stt-server binary.
type STTConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g. ":8765").
	ListenAddr string `yaml:"listen_addr"`

	// ModelPath is the whisper GGML model file.
	ModelPath string `yaml:"model_path"`

	// Language is the transcription language hint.
	Language string `yaml:"language"`

	// SilenceThreshold mirrors the client's silence gate; the server uses
	// it to decide when buffered audio forms a complete utterance.
	SilenceThreshold float64 `yaml:"silence_rms_threshold"`

	// SilenceMaxSeconds is the trailing-silence flush trigger.
	SilenceMaxSeconds float64 `yaml:"silence_max_seconds"`

	// MinUtteranceSeconds discards utterances shorter than this.
	MinUtteranceSeconds float64 `yaml:"min_utterance_seconds"`

	// MaxUtteranceSeconds force-flushes an utterance running this long.
	MaxUtteranceSeconds float64 `yaml:"max_utterance_seconds"`

	// MaxBufferSeconds caps total buffered audio per connection.
	MaxBufferSeconds float64 `yaml:"max_buffer_seconds"`
}

// SilenceMax returns the trailing-silence flush trigger as a duration.
func (c STTConfig) SilenceMax() time.Duration { return secondsToDuration(c.SilenceMaxSeconds) }

// MinUtterance returns the minimum utterance length as a duration.
func (c STTConfig) MinUtterance() time.Duration { return secondsToDuration(c.MinUtteranceSeconds) }

// MaxUtterance returns the forced-flush utterance length as a duration.
func (c STTConfig) MaxUtterance() time.Duration { return secondsToDuration(c.MaxUtteranceSeconds) }

// MaxBuffer returns the buffered-audio cap as a duration.
func (c STTConfig) MaxBuffer() time.Duration { return secondsToDuration(c.MaxBufferSeconds) }

// TTSConfig configures the tts-server binary.
type TTSConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g. ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// Backend selects the reply generation backend.
	Backend LLMBackend `yaml:"backend"`

	// OllamaURL is the Ollama daemon base URL.
	OllamaURL string `yaml:"ollama_url"`

	// Model is the default language model name.
	Model string `yaml:"model"`

	// OpenAIAPIKey authenticates against an OpenAI-compatible API when
	// Backend is "openai".
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// OpenAIBaseURL overrides the OpenAI-compatible endpoint.
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// LLMTimeoutSeconds bounds a single generation request.
	LLMTimeoutSeconds float64 `yaml:"llm_timeout_seconds"`

	// RetryAttempts is the total number of generation tries.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoffSeconds is the delay before the second try; it doubles
	// for each subsequent one.
	RetryBackoffSeconds float64 `yaml:"retry_backoff_seconds"`

	// BreakerFailMax is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerFailMax int `yaml:"breaker_fail_max"`

	// BreakerResetSeconds is how long the breaker stays open before a
	// probe is allowed.
	BreakerResetSeconds float64 `yaml:"breaker_reset_seconds"`

	// PiperBinary is the piper executable path; empty resolves "piper"
	// via PATH.
	PiperBinary string `yaml:"piper_binary"`

	// VoicesDir holds the piper voice models.
	VoicesDir string `yaml:"voices_dir"`

	// PersonalitiesDir holds system-prompt files.
	PersonalitiesDir string `yaml:"personalities_dir"`

	// Voice is the default voice model name.
	Voice string `yaml:"voice"`

	// Personality is the default personality name.
	Personality string `yaml:"personality"`

	// SpeakerID selects a speaker within multi-speaker voice models.
	SpeakerID int `yaml:"speaker_id"`

	// LengthScale controls speech speed; 1.0 is normal.
	LengthScale float64 `yaml:"length_scale"`

	// NoiseScale controls voice variance.
	NoiseScale float64 `yaml:"noise_scale"`

	// NoiseW controls voice stability.
	NoiseW float64 `yaml:"noise_w"`

	// MaxTextLength caps the user text length in characters.
	MaxTextLength int `yaml:"max_text_length"`

	// MaxConcurrent bounds simultaneous synthesis requests.
	MaxConcurrent int `yaml:"max_concurrent"`

	// ConversationLogMax bounds the in-memory conversation log; 0 keeps
	// everything.
	ConversationLogMax int `yaml:"conversation_log_max"`
}

// LLMTimeout returns the generation request timeout as a duration.
func (c TTSConfig) LLMTimeout() time.Duration { return secondsToDuration(c.LLMTimeoutSeconds) }

// RetryBackoff returns the initial retry backoff as a duration.
func (c TTSConfig) RetryBackoff() time.Duration { return secondsToDuration(c.RetryBackoffSeconds) }

// BreakerReset returns the breaker reset window as a duration.
func (c TTSConfig) BreakerReset() time.Duration { return secondsToDuration(c.BreakerResetSeconds) }

// Default returns the configuration all services start from; a config file
// overrides individual fields.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			SampleRate:  16000,
			ChunkMillis: 30,
		},
		Client: ClientConfig{
			STTURL:                   "ws://127.0.0.1:8765/ws/stt",
			TTSURL:                   "http://127.0.0.1:8000",
			SilenceThreshold:         0.008,
			SilenceMaxSeconds:        0.7,
			MinUtteranceSeconds:      0.35,
			UtteranceCooldownSeconds: 1,
			SilenceTailFrames:        3,
			QueueMax:                 200,
			ResponseCooldownSeconds:  2,
			ReconnectDelaySeconds:    3,
			MetricsIntervalSeconds:   60,
			PlayerCommand:            "aplay -q -",
		},
		STT: STTConfig{
			ListenAddr:          ":8765",
			Language:            "en",
			SilenceThreshold:    0.008,
			SilenceMaxSeconds:   0.7,
			MinUtteranceSeconds: 0.35,
			MaxUtteranceSeconds: 12,
			MaxBufferSeconds:    120,
		},
		TTS: TTSConfig{
			ListenAddr:          ":8000",
			Backend:             BackendOllama,
			OllamaURL:           "http://127.0.0.1:11434",
			Model:               "llama3",
			LLMTimeoutSeconds:   30,
			RetryAttempts:       3,
			RetryBackoffSeconds: 1,
			BreakerFailMax:      5,
			BreakerResetSeconds: 60,
			VoicesDir:           "voices",
			PersonalitiesDir:    "personalities",
			SpeakerID:           0,
			LengthScale:         1.0,
			NoiseScale:          0.667,
			NoiseW:              0.8,
			MaxTextLength:       500,
			MaxConcurrent:       4,
			ConversationLogMax:  100,
		},
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
