// Package observe provides observability primitives for vvpreset:
// OpenTelemetry metrics, tracing, trace-aware logging, and an instrumented
// HTTP transport for calls to the TTS engine.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them into a Prometheus registry that can be dumped to a text file
// at the end of a run (for node_exporter's textfile collector). A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope of every vvpreset meter and tracer.
const scopeName = "github.com/MrWong99/vvpreset"

// Preset outcomes used with [Metrics.RecordPresets].
const (
	OutcomeKept    = "kept"
	OutcomeCreated = "created"
	OutcomeDropped = "dropped"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// UpstreamDuration tracks TTS engine request latency. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	UpstreamDuration metric.Float64Histogram

	// UpstreamRequests counts engine requests. Use with attributes:
	//   attribute.String("path", ...), attribute.String("status", ...)
	UpstreamRequests metric.Int64Counter

	// UpstreamErrors counts failed engine requests. Use with attribute:
	//   attribute.String("kind", ...)
	UpstreamErrors metric.Int64Counter

	// SpeakersFetched counts speakers returned by the engine.
	SpeakersFetched metric.Int64Counter

	// Presets counts merge outcomes. Use with attribute:
	//   attribute.String("outcome", "kept"|"created"|"dropped")
	Presets metric.Int64Counter

	// ValidationIssues counts problems found in the saved preset file. Use
	// with attribute: attribute.String("kind", ...)
	ValidationIssues metric.Int64Counter

	// StageDuration tracks pipeline stage latency. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for local
// HTTP calls and file I/O.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	if met.UpstreamDuration, err = m.Float64Histogram("vvpreset.upstream.duration",
		metric.WithDescription("Latency of TTS engine requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("vvpreset.stage.duration",
		metric.WithDescription("Latency of pipeline stages."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.UpstreamRequests, err = m.Int64Counter("vvpreset.upstream.requests",
		metric.WithDescription("Total TTS engine requests by path and status."),
	); err != nil {
		return nil, err
	}
	if met.UpstreamErrors, err = m.Int64Counter("vvpreset.upstream.errors",
		metric.WithDescription("Total failed TTS engine requests by kind."),
	); err != nil {
		return nil, err
	}
	if met.SpeakersFetched, err = m.Int64Counter("vvpreset.speakers.fetched",
		metric.WithDescription("Total speakers returned by the TTS engine."),
	); err != nil {
		return nil, err
	}
	if met.Presets, err = m.Int64Counter("vvpreset.presets",
		metric.WithDescription("Total presets by merge outcome."),
	); err != nil {
		return nil, err
	}
	if met.ValidationIssues, err = m.Int64Counter("vvpreset.validation.issues",
		metric.WithDescription("Total problems found in saved preset files by kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordUpstreamError increments the upstream error counter.
func (m *Metrics) RecordUpstreamError(ctx context.Context, kind string) {
	m.UpstreamErrors.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}

// RecordPresets adds n presets with the given outcome. Zero counts are
// skipped.
func (m *Metrics) RecordPresets(ctx context.Context, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.Presets.Add(ctx, int64(n), metric.WithAttributes(Attr("outcome", outcome)))
}

// RecordValidationIssue increments the validation issue counter.
func (m *Metrics) RecordValidationIssue(ctx context.Context, kind string) {
	m.ValidationIssues.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}

// RecordStage records how long a pipeline stage took, in seconds.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds, metric.WithAttributes(Attr("stage", stage)))
}
