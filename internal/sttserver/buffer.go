// Package sttserver implements the websocket speech-to-text endpoint.
// Clients stream raw PCM16LE frames; the server performs its own
// silence-based utterance segmentation and replies with transcript
// messages over the same connection.
package sttserver

import (
	"time"

	"github.com/talkback-bot/talkback/pkg/audio"
)

// BufferConfig tunes the per-connection utterance buffer.
type BufferConfig struct {
	// SampleRate is the PCM sample rate clients must send, in Hz.
	SampleRate int

	// SilenceThreshold is the normalized RMS level at or above which a
	// frame counts as voiced.
	SilenceThreshold float64

	// SilenceMax is the trailing-silence duration that completes an
	// utterance.
	SilenceMax time.Duration

	// MinUtterance is the minimum buffered duration worth transcribing.
	// Shorter utterances are discarded on flush.
	MinUtterance time.Duration

	// MaxUtterance forces a flush once an utterance has run this long,
	// voiced or not.
	MaxUtterance time.Duration

	// MaxBuffer forces a flush once this much audio has been buffered.
	// It is the hard memory bound per connection.
	MaxBuffer time.Duration
}

// FlushReason says why [Buffer.Append] decided the buffer must be flushed.
type FlushReason int

const (
	// FlushNone means keep buffering.
	FlushNone FlushReason = iota

	// FlushMaxBuffer means the hard buffer limit was hit.
	FlushMaxBuffer

	// FlushMaxUtterance means the utterance ran past its maximum length.
	FlushMaxUtterance

	// FlushSilence means the utterance ended with a full silence window.
	FlushSilence

	// FlushForced means the client sent an explicit flush command.
	FlushForced
)

// String returns the reason name used in logs and metrics.
func (r FlushReason) String() string {
	switch r {
	case FlushMaxBuffer:
		return "max_buffer"
	case FlushMaxUtterance:
		return "max_utterance"
	case FlushSilence:
		return "silence"
	case FlushForced:
		return "forced"
	default:
		return "none"
	}
}

// Buffer accumulates one utterance of PCM audio for a single connection.
// It stays empty until the first voiced frame arrives; from then on every
// frame is buffered (silence included) until a flush condition fires.
// Buffer is not safe for concurrent use; each connection owns one.
type Buffer struct {
	cfg BufferConfig

	buf           []byte
	started       bool
	utteranceAt   time.Time
	lastVoiceAt   time.Time
	totalBuffered time.Duration
}

// NewBuffer creates an empty Buffer.
func NewBuffer(cfg BufferConfig) *Buffer {
	return &Buffer{cfg: cfg}
}

// Append feeds one PCM frame observed at now. The returned reason is
// [FlushNone] while buffering should continue; any other value means the
// caller must flush via [Buffer.Take] before appending more audio.
func (b *Buffer) Append(chunk []byte, now time.Time) FlushReason {
	if len(chunk) == 0 {
		return FlushNone
	}

	voiced := audio.RMS(chunk) >= b.cfg.SilenceThreshold
	dur := audio.Duration(len(chunk), b.cfg.SampleRate)

	if !b.started {
		// Leading silence is never buffered.
		if !voiced {
			return FlushNone
		}
		b.started = true
		b.utteranceAt = now
		b.lastVoiceAt = now
		b.buf = append(b.buf, chunk...)
		b.totalBuffered = dur
		return FlushNone
	}

	b.buf = append(b.buf, chunk...)
	b.totalBuffered += dur
	if voiced {
		b.lastVoiceAt = now
	}

	// Limit checks in order of severity.
	if b.totalBuffered >= b.cfg.MaxBuffer {
		return FlushMaxBuffer
	}
	if now.Sub(b.utteranceAt) >= b.cfg.MaxUtterance {
		return FlushMaxUtterance
	}
	if now.Sub(b.lastVoiceAt) >= b.cfg.SilenceMax && len(b.buf) > 0 {
		return FlushSilence
	}
	return FlushNone
}

// Take returns the buffered PCM and its duration in seconds, and resets
// the buffer unconditionally. The caller decides whether the audio is long
// enough to transcribe.
func (b *Buffer) Take() (pcm []byte, seconds float64) {
	pcm = b.buf
	seconds = audio.Seconds(len(pcm), b.cfg.SampleRate)

	b.buf = nil
	b.started = false
	b.utteranceAt = time.Time{}
	b.lastVoiceAt = time.Time{}
	b.totalBuffered = 0
	return pcm, seconds
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// TooShort reports whether an utterance of the given length should be
// discarded instead of transcribed.
func (b *Buffer) TooShort(seconds float64) bool {
	return seconds < b.cfg.MinUtterance.Seconds()
}
