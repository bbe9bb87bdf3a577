package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/be4breach/reportd/internal/config"
	"github.com/be4breach/reportd/internal/core"
	"github.com/be4breach/reportd/pkg/types"
)

// Telemetry wires the OTLP trace exporter and holds the parse-level
// instruments. When disabled it records nothing and exports nothing.
type Telemetry struct {
	enabled  bool
	provider *sdktrace.TracerProvider

	parseCounter   metric.Int64Counter
	findingCounter metric.Int64Counter
	parseDuration  metric.Float64Histogram
}

func New(ctx context.Context, cfg config.TelemetryConfig) (core.Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{enabled: false}, nil
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)

	meter := otel.Meter(cfg.ServiceName)

	parseCounter, err := meter.Int64Counter("reportd.parses.total",
		metric.WithDescription("Total report parse attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse counter: %w", err)
	}

	findingCounter, err := meter.Int64Counter("reportd.findings.total",
		metric.WithDescription("Total findings extracted from reports"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create finding counter: %w", err)
	}

	parseDuration, err := meter.Float64Histogram("reportd.parse.duration",
		metric.WithDescription("Report parse duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse histogram: %w", err)
	}

	return &Telemetry{
		enabled:        true,
		provider:       provider,
		parseCounter:   parseCounter,
		findingCounter: findingCounter,
		parseDuration:  parseDuration,
	}, nil
}

func (t *Telemetry) RecordParse(duration float64, success bool) {
	if !t.enabled {
		return
	}
	ctx := context.Background()
	t.parseCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
	t.parseDuration.Record(ctx, duration)
}

func (t *Telemetry) RecordFindings(report *types.PentestReport) {
	if !t.enabled || report == nil {
		return
	}
	ctx := context.Background()
	for severity, count := range report.Summary {
		t.findingCounter.Add(ctx, int64(count), metric.WithAttributes(
			attribute.String("severity", severity),
		))
	}
}

func (t *Telemetry) Close() error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.provider.Shutdown(ctx)
}
