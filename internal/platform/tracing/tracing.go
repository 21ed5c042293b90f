// Package tracing wires the routing engine's OpenTelemetry tracer provider.
// It is deliberately thin: one exporter choice (OTLP/gRPC) for production,
// a no-op provider when no collector endpoint is configured for local/dev
// runs, matching the teacher's "cheap by default, real when configured"
// platform wiring style.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Init installs a global TracerProvider for serviceName and returns a
// shutdown func the caller must run on process exit to flush pending spans.
// With no endpoint configured it installs a provider with no exporter
// attached, so Tracer().Start calls remain cheap no-ops instead of requiring
// every caller to nil-check.
func Init(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("build otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
