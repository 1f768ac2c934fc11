package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/groundedtext/extract/internal/config"
)

// Metrics wraps the pipeline's three OTel instruments. A nil
// *Metrics (or one with nil instruments) is a safe no-op — the Annotator
// records through it unconditionally, so wiring in real metrics is purely
// additive.
type Metrics struct {
	extractionsTotal metric.Int64Counter
	chunkDuration    metric.Float64Histogram
	chunkRetries     metric.Int64Counter
}

// NoopMetrics returns a Metrics value whose recording methods are all
// no-ops, the default when InitMetrics was never called.
func NoopMetrics() *Metrics { return &Metrics{} }

// InitMetrics configures an OTel MeterProvider exporting over OTLP/HTTP
// and registers the pipeline's three instruments. Metrics only — no
// tracing, no host/HTTP instrumentation.
func InitMetrics(ctx context.Context, obs config.ObsConfig) (*Metrics, func(context.Context) error, error) {
	if obs.OTLP == "" {
		return NoopMetrics(), func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(obs.ServiceName),
			semconv.ServiceVersion(obs.ServiceVersion),
			attribute.String("deployment.environment", obs.Environment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init resource: %w", err)
	}

	exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(obs.OTLP), otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, nil, fmt.Errorf("init metrics exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	meter := mp.Meter("extract")
	extractionsTotal, err := meter.Int64Counter("extract.extractions_total",
		metric.WithDescription("extractions produced, by alignment status"))
	if err != nil {
		return nil, nil, fmt.Errorf("init extractions_total counter: %w", err)
	}
	chunkDuration, err := meter.Float64Histogram("extract.chunk_duration_ms",
		metric.WithDescription("time spent processing one (chunk, pass) inference task"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, nil, fmt.Errorf("init chunk_duration_ms histogram: %w", err)
	}
	chunkRetries, err := meter.Int64Counter("extract.chunk_retries_total",
		metric.WithDescription("per-chunk retry attempts due to runtime or parse errors"))
	if err != nil {
		return nil, nil, fmt.Errorf("init chunk_retries_total counter: %w", err)
	}

	m := &Metrics{extractionsTotal: extractionsTotal, chunkDuration: chunkDuration, chunkRetries: chunkRetries}
	return m, mp.Shutdown, nil
}

// RecordExtraction increments extract.extractions_total for one extraction's
// final alignment status (exact/fuzzy/lesser/unaligned).
func (m *Metrics) RecordExtraction(ctx context.Context, status string) {
	if m == nil || m.extractionsTotal == nil {
		return
	}
	m.extractionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordChunkDuration records the wall-clock time of one (chunk, pass) task.
func (m *Metrics) RecordChunkDuration(ctx context.Context, d time.Duration) {
	if m == nil || m.chunkDuration == nil {
		return
	}
	m.chunkDuration.Record(ctx, float64(d.Microseconds())/1000.0)
}

// RecordChunkRetry increments extract.chunk_retries_total once per retry
// attempt (not once per chunk).
func (m *Metrics) RecordChunkRetry(ctx context.Context) {
	if m == nil || m.chunkRetries == nil {
		return
	}
	m.chunkRetries.Add(ctx, 1)
}
