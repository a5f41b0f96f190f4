// Package observe provides application-wide observability primitives for
// Talkback: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Talkback metrics.
const meterName = "github.com/talkback-bot/talkback"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks per-utterance speech-to-text latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks reply generation latency.
	LLMDuration metric.Float64Histogram

	// SynthDuration tracks speech synthesis latency.
	SynthDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end text-to-speech request latency
	// (reply generation plus synthesis).
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptionRequests counts processed utterances. Use with attribute:
	//   attribute.String("status", ...)
	TranscriptionRequests metric.Int64Counter

	// TTSRequests counts /tts requests. Use with attribute:
	//   attribute.String("status", ...)
	TTSRequests metric.Int64Counter

	// LLMRequests counts reply generation calls. Use with attribute:
	//   attribute.String("status", ...)
	LLMRequests metric.Int64Counter

	// WSConnections counts websocket sessions. Use with attribute:
	//   attribute.String("status", ...)
	WSConnections metric.Int64Counter

	// --- Gauges ---

	// ActiveConnections tracks the number of live websocket connections.
	ActiveConnections metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("talkback.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("talkback.llm.duration",
		metric.WithDescription("Latency of reply generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthDuration, err = m.Float64Histogram("talkback.synth.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("talkback.pipeline.duration",
		metric.WithDescription("End-to-end text-to-speech request latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptionRequests, err = m.Int64Counter("talkback.transcription.requests",
		metric.WithDescription("Total processed utterances by status."),
	); err != nil {
		return nil, err
	}
	if met.TTSRequests, err = m.Int64Counter("talkback.tts.requests",
		metric.WithDescription("Total /tts requests by status."),
	); err != nil {
		return nil, err
	}
	if met.LLMRequests, err = m.Int64Counter("talkback.llm.requests",
		metric.WithDescription("Total reply generation calls by status."),
	); err != nil {
		return nil, err
	}
	if met.WSConnections, err = m.Int64Counter("talkback.ws.connections",
		metric.WithDescription("Total websocket sessions by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveConnections, err = m.Int64UpDownCounter("talkback.active_connections",
		metric.WithDescription("Number of live websocket connections."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("talkback.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTranscription records one processed utterance with its outcome.
func (m *Metrics) RecordTranscription(ctx context.Context, status string) {
	m.TranscriptionRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordTTSRequest records one /tts request with its outcome.
func (m *Metrics) RecordTTSRequest(ctx context.Context, status string) {
	m.TTSRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordLLMRequest records one reply generation call with its outcome.
func (m *Metrics) RecordLLMRequest(ctx context.Context, status string) {
	m.LLMRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordWSConnection records one websocket session with its outcome.
func (m *Metrics) RecordWSConnection(ctx context.Context, status string) {
	m.WSConnections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
