package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// ProviderConfig configures the OpenTelemetry SDK providers.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "vvpreset".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string

	// TraceExporter is an optional span exporter. When nil, spans are
	// recorded but not exported.
	TraceExporter sdktrace.SpanExporter
}

// Provider owns the SDK providers created by [InitProvider] and the
// Prometheus registry the metrics are bridged into.
type Provider struct {
	registry  *prometheus.Registry
	meters    *sdkmetric.MeterProvider
	tracers   *sdktrace.TracerProvider
	shutdowns []func(context.Context) error
}

// InitProvider initialises the OTel SDK with the given config. It sets up:
//
//   - A [sdkmetric.MeterProvider] with a Prometheus exporter writing into a
//     private registry, so a one-shot run can dump it with
//     [Provider.WriteTextfile].
//   - A [sdktrace.TracerProvider] with the configured exporter (or none).
//   - The W3C Trace Context propagator.
//
// Both providers are registered as the global OTel providers. Call
// [Provider.Shutdown] in a defer from main().
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vvpreset"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	p := &Provider{registry: prometheus.NewRegistry()}

	// --- Metrics: Prometheus exporter bridge ---
	promExp, err := promexporter.New(promexporter.WithRegisterer(p.registry))
	if err != nil {
		return nil, fmt.Errorf("observe: create prometheus exporter: %w", err)
	}
	p.meters = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(p.meters)
	p.shutdowns = append(p.shutdowns, p.meters.Shutdown)

	// --- Traces ---
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	p.tracers = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(p.tracers)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	p.shutdowns = append(p.shutdowns, p.tracers.Shutdown)

	return p, nil
}

// MeterProvider returns the SDK meter provider. Pass it to [NewMetrics].
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider {
	return p.meters
}

// Registry returns the Prometheus registry the metrics are exported into.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text exposition format. The file is written atomically.
func (p *Provider) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("observe: write metrics to %q: %w", path, err)
	}
	return nil
}

// Shutdown flushes and closes the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdowns {
		if e := fn(ctx); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}
