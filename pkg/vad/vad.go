// Package vad implements the energy-threshold voice activity gate used by
// the client sender loop to segment the capture stream into utterances.
//
// The gate is a small state machine driven by per-frame RMS energy and
// monotonic timestamps: speech begins when a voiced frame arrives outside
// the post-utterance cooldown, continues while voiced frames keep
// refreshing the last-voice timestamp, and ends once trailing silence
// exceeds the configured window. The gate is not safe for concurrent use;
// it is owned exclusively by the sender loop.
package vad

import "time"

// Config holds the immutable tuning parameters of a [Gate].
type Config struct {
	// SilenceThreshold is the normalized RMS level at or above which a
	// frame counts as voiced.
	SilenceThreshold float64

	// SilenceMax is the trailing-silence duration that ends an utterance.
	SilenceMax time.Duration

	// MinUtterance is the minimum duration for an utterance to be
	// considered meaningful. Shorter utterances are still transmitted but
	// flagged invalid for downstream decisions.
	MinUtterance time.Duration

	// Cooldown is the pause required after an utterance ends before a new
	// one may start, so trailing noise does not immediately retrigger
	// capture.
	Cooldown time.Duration
}

// Gate tracks whether the audio stream is currently inside an utterance.
type Gate struct {
	cfg Config

	inUtterance    bool
	utteranceStart time.Time
	lastVoice      time.Time
	lastEnd        time.Time
}

// New creates a Gate with the given configuration.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Voiced reports whether a frame with the given RMS level counts as voice.
func (g *Gate) Voiced(rms float64) bool {
	return rms >= g.cfg.SilenceThreshold
}

// InUtterance reports whether the gate is currently inside an utterance.
func (g *Gate) InUtterance() bool {
	return g.inUtterance
}

// CanStart reports whether the post-utterance cooldown has elapsed at now.
// It is always true before the first utterance.
func (g *Gate) CanStart(now time.Time) bool {
	return now.Sub(g.lastEnd) >= g.cfg.Cooldown
}

// Start begins a new utterance at now.
func (g *Gate) Start(now time.Time) {
	g.inUtterance = true
	g.utteranceStart = now
	g.lastVoice = now
}

// UpdateVoice marks voice activity at now. Call it for every voiced frame
// while inside an utterance.
func (g *Gate) UpdateVoice(now time.Time) {
	g.lastVoice = now
}

// ShouldEnd reports whether the current utterance should end because at
// least SilenceMax has elapsed since the last voiced frame. Always false
// outside an utterance.
func (g *Gate) ShouldEnd(now time.Time) bool {
	if !g.inUtterance {
		return false
	}
	return now.Sub(g.lastVoice) >= g.cfg.SilenceMax
}

// End closes the current utterance at now and returns its duration.
func (g *Gate) End(now time.Time) time.Duration {
	duration := now.Sub(g.utteranceStart)
	g.inUtterance = false
	g.lastEnd = now
	return duration
}

// IsValid reports whether an utterance of the given duration meets the
// minimum-duration requirement.
func (g *Gate) IsValid(duration time.Duration) bool {
	return duration >= g.cfg.MinUtterance
}
