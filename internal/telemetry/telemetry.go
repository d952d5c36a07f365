// Package telemetry wires up OpenTelemetry tracing and metrics for the
// bridge and front-end processes, emitting spans for bridge requests and
// lifecycle transitions to a stdout exporter when enabled; a disabled
// Provider uses otel's global (by default no-op) implementations.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer name used across both processes; scoped by span name rather
// than by per-package tracer to keep the instrumentation surface small.
const instrumentationName = "github.com/editorbridge/mcp-bridge"

// Provider bundles the tracer and meter handed to request-handling
// code, plus the Shutdown hook that flushes pending spans/metrics on
// process exit.
type Provider struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Options configures provider construction.
type Options struct {
	// ServiceName identifies the process in emitted resource attributes
	// ("editor-bridge-host" or "mcp-frontend").
	ServiceName string

	// Enabled gates whether real exporters are built. When false, New
	// returns a Provider backed by otel's no-op implementations so
	// calling code never needs a nil check.
	Enabled bool
}

// New builds a Provider. When opts.Enabled is false it returns no-op
// tracer/meter implementations so instrumented code paths stay cheap
// and branch-free when telemetry is turned off.
func New(opts Options) (*Provider, error) {
	if !opts.Enabled {
		return &Provider{
			Tracer: otel.Tracer(instrumentationName),
			Meter:  otel.Meter(instrumentationName),
		}, nil
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", opts.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: build trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: build metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Provider{
		Tracer:         tp.Tracer(instrumentationName),
		Meter:          mp.Meter(instrumentationName),
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

// Shutdown flushes and releases exporter resources. Safe to call on a
// disabled Provider (no-op).
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
		}
	}
	return nil
}
