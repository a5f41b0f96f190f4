package ttsserver

import (
	"log/slog"
	"sync/atomic"
)

// Settings are the runtime-tunable synthesis and generation knobs. They
// seed every /tts request; the request body may override individual fields
// for that request only.
type Settings struct {
	// Personality names a system-prompt file (without .txt) under the
	// personalities directory. Empty means no system prompt.
	Personality string `json:"personality"`

	// Model is the default language model name.
	Model string `json:"model"`

	// Voice is the default voice model name (without .onnx).
	Voice string `json:"voice"`

	// SpeakerID selects a speaker within multi-speaker voice models.
	SpeakerID int `json:"speaker_id"`

	// LengthScale controls speech speed; 1.0 is normal, larger is slower.
	LengthScale float64 `json:"length_scale"`

	// NoiseScale controls voice variance.
	NoiseScale float64 `json:"noise_scale"`

	// NoiseW controls voice stability.
	NoiseW float64 `json:"noise_w"`
}

// DefaultSettings returns the piper defaults with the given model and voice.
func DefaultSettings(model, voice string) Settings {
	return Settings{
		Model:       model,
		Voice:       voice,
		LengthScale: 1.0,
		NoiseScale:  0.667,
		NoiseW:      0.8,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	Personality *string  `json:"personality"`
	Model       *string  `json:"model"`
	Voice       *string  `json:"voice"`
	SpeakerID   *int     `json:"speaker_id"`
	LengthScale *float64 `json:"length_scale"`
	NoiseScale  *float64 `json:"noise_scale"`
	NoiseW      *float64 `json:"noise_w"`
}

// RuntimeSettings holds the current [Settings] behind an atomic pointer.
// Readers always see a consistent snapshot; concurrent writers race and the
// last one wins, which is acceptable for an operator-facing config endpoint.
type RuntimeSettings struct {
	cur atomic.Pointer[Settings]
}

// NewRuntimeSettings creates runtime settings seeded with initial.
func NewRuntimeSettings(initial Settings) *RuntimeSettings {
	r := &RuntimeSettings{}
	r.cur.Store(&initial)
	return r
}

// Snapshot returns a copy of the current settings.
func (r *RuntimeSettings) Snapshot() Settings {
	return *r.cur.Load()
}

// Apply merges the non-nil fields of patch into the current settings and
// publishes the result, returning the new snapshot.
func (r *RuntimeSettings) Apply(patch SettingsPatch) Settings {
	s := r.Snapshot()
	if patch.Personality != nil {
		s.Personality = *patch.Personality
		slog.Info("updated personality", "personality", s.Personality)
	}
	if patch.Model != nil {
		s.Model = *patch.Model
		slog.Info("updated model", "model", s.Model)
	}
	if patch.Voice != nil {
		s.Voice = *patch.Voice
		slog.Info("updated voice", "voice", s.Voice)
	}
	if patch.SpeakerID != nil {
		s.SpeakerID = *patch.SpeakerID
		slog.Info("updated speaker_id", "speaker_id", s.SpeakerID)
	}
	if patch.LengthScale != nil {
		s.LengthScale = *patch.LengthScale
		slog.Info("updated length_scale", "length_scale", s.LengthScale)
	}
	if patch.NoiseScale != nil {
		s.NoiseScale = *patch.NoiseScale
		slog.Info("updated noise_scale", "noise_scale", s.NoiseScale)
	}
	if patch.NoiseW != nil {
		s.NoiseW = *patch.NoiseW
		slog.Info("updated noise_w", "noise_w", s.NoiseW)
	}
	r.cur.Store(&s)
	return s
}
