package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Log attribute keys added by [Logger].
const (
	LogKeyRunID  = "run_id"
	LogKeySpanID = "span_id"
)

// StartSpan starts a span named name on the global vvpreset tracer. The
// caller must end the span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, name, opts...)
}

// RunID identifies the run ctx belongs to. All spans of one vvpreset
// invocation share the trace started by the root span, so this is the hex
// trace ID, or "" outside any span.
func RunID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger tagged with the run and span of ctx.
func Logger(ctx context.Context) *slog.Logger {
	id := RunID(ctx)
	if id == "" {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String(LogKeyRunID, id),
		slog.String(LogKeySpanID, trace.SpanContextFromContext(ctx).SpanID().String()),
	)
}
