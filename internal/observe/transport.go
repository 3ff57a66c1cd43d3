package observe

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// Transport is an [http.RoundTripper] that instruments outgoing requests to
// the TTS engine. For every request it:
//
//  1. Starts a client span and injects W3C Trace Context into the headers.
//  2. Records the request duration and a per-status request count.
//  3. Counts transport failures as upstream errors.
//  4. Logs completion at debug level with status, duration, and trace info.
type Transport struct {
	base    http.RoundTripper
	metrics *Metrics
	prop    propagation.TextMapPropagator
}

// NewTransport wraps base. A nil base means [http.DefaultTransport]; nil
// metrics means [DefaultMetrics].
func NewTransport(base http.RoundTripper, m *Metrics) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if m == nil {
		m = DefaultMetrics()
	}
	return &Transport{base: base, metrics: m, prop: propagation.TraceContext{}}
}

// Client returns an [http.Client] that sends requests through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	path := req.URL.Path

	ctx, span := StartSpan(req.Context(), "HTTP "+req.Method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLFull(req.URL.String()),
			semconv.ServerAddress(req.URL.Hostname()),
		),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	t.prop.Inject(ctx, propagation.HeaderCarrier(out.Header))

	resp, err := t.base.RoundTrip(out)
	duration := time.Since(start)

	t.metrics.UpstreamDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("path", path),
		),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.metrics.UpstreamRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("status", "error"),
		))
		t.metrics.RecordUpstreamError(ctx, "transport")
		Logger(ctx).LogAttrs(ctx, slog.LevelDebug, "upstream request failed",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.Duration("duration", duration),
			slog.Any("err", err),
		)
		return nil, err
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
		t.metrics.RecordUpstreamError(ctx, "status")
	}
	t.metrics.UpstreamRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("status", strconv.Itoa(resp.StatusCode)),
	))

	Logger(ctx).LogAttrs(ctx, slog.LevelDebug, "upstream request completed",
		slog.String("method", req.Method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)
	return resp, nil
}
