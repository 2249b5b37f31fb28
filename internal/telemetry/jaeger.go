package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

/*
Spans from the HTTP middleware and the hub's message dispatch go through
the global tracer provider. Without an endpoint the provider stays the
otel no-op and nothing is exported.

  app -> OpenTelemetry SDK -> Jaeger exporter -> collector -> Jaeger UI
*/

// ShutdownFunc flushes and stops the exporter
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitJaeger installs a Jaeger-backed tracer provider. An empty endpoint
// disables tracing.
func InitJaeger(serviceName, jaegerEndpoint string, logger zerolog.Logger) (ShutdownFunc, error) {
	if jaegerEndpoint == "" {
		logger.Info().Msg("tracing disabled (no JAEGER_ENDPOINT)")
		return noopShutdown, nil
	}

	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		// per-message spans are frequent; follow the caller and keep a tenth otherwise
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1))),
	)
	otel.SetTracerProvider(tp)

	logger.Info().Str("endpoint", jaegerEndpoint).Str("service", serviceName).Msg("jaeger tracing initialized")

	return tp.Shutdown, nil
}
