// Package client implements the interactive voice client: it captures
// audio, gates it through voice activity detection, streams utterances to
// the transcription server, and speaks generated replies back through the
// synthesis service. A supervisor keeps the session alive across
// disconnects.
package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Metrics tracks per-process counters and latency totals for the client
// pipeline. It is safe for concurrent use and is reported through periodic
// log summaries rather than an exporter, since the client is an end-user
// process without a scrape endpoint.
type Metrics struct {
	mu sync.Mutex

	transcriptions int
	responses      int
	skipped        int
	sttErrors      int
	ttsErrors      int

	totalSTT time.Duration
	totalTTS time.Duration
	totalE2E time.Duration
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordTranscription records one received transcript and the audio
// duration it covered.
func (m *Metrics) RecordTranscription(sttDuration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcriptions++
	m.totalSTT += sttDuration
}

// RecordResponse records one spoken response with its synthesis and
// end-to-end latencies.
func (m *Metrics) RecordResponse(ttsDuration, e2eDuration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses++
	m.totalTTS += ttsDuration
	m.totalE2E += e2eDuration
}

// RecordSkip records a response suppressed by the cooldown.
func (m *Metrics) RecordSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

// RecordSTTError records a transcription server error.
func (m *Metrics) RecordSTTError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sttErrors++
}

// RecordTTSError records a failed response (synthesis or playback).
func (m *Metrics) RecordTTSError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttsErrors++
}

// AvgSTT returns the mean transcript duration, zero when none recorded.
func (m *Metrics) AvgSTT() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transcriptions == 0 {
		return 0
	}
	return m.totalSTT / time.Duration(m.transcriptions)
}

// AvgTTS returns the mean synthesis latency, zero when none recorded.
func (m *Metrics) AvgTTS() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responses == 0 {
		return 0
	}
	return m.totalTTS / time.Duration(m.responses)
}

// AvgE2E returns the mean end-to-end latency, zero when none recorded.
func (m *Metrics) AvgE2E() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responses == 0 {
		return 0
	}
	return m.totalE2E / time.Duration(m.responses)
}

// Transcriptions returns the transcript count.
func (m *Metrics) Transcriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcriptions
}

// Responses returns the spoken-response count.
func (m *Metrics) Responses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responses
}

// Skipped returns the cooldown-skip count.
func (m *Metrics) Skipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipped
}

// LogSummary emits the counters and average latencies at info level.
func (m *Metrics) LogSummary() {
	m.mu.Lock()
	transcriptions := m.transcriptions
	responses := m.responses
	skipped := m.skipped
	sttErrors := m.sttErrors
	ttsErrors := m.ttsErrors
	m.mu.Unlock()

	slog.Info("session metrics",
		"transcriptions", transcriptions,
		"responses", responses,
		"skipped", skipped,
		"stt_errors", sttErrors,
		"tts_errors", ttsErrors)

	if transcriptions > 0 {
		slog.Info("session latency",
			"avg_stt", m.AvgSTT(),
			"avg_tts", m.AvgTTS(),
			"avg_e2e", m.AvgE2E())
	}
}

// RunLogger logs a summary every interval until ctx is cancelled. It
// always returns nil so it can run in an error group without tearing the
// session down.
func (m *Metrics) RunLogger(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.LogSummary()
		}
	}
}
