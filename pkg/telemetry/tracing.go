package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// serviceName identifies the process in span resource attributes.
const serviceName = "empirica"

// NewTracerProvider builds a TracerProvider with a resource describing this
// process and a span processor that logs finished spans through the given
// logger. It registers the provider as the global one so that package-level
// tracers obtained via otel.Tracer(...) (pkg/cascade's included) start
// producing real spans instead of the no-op default.
func NewTracerProvider(logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		logger.Warn("failed to build otel resource, using default", "error", err)
		res = resource.Default()
	}

	processor := sdktrace.NewSimpleSpanProcessor(newSlogSpanExporter(logger))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(processor),
	)

	otel.SetTracerProvider(tp)

	return tp, nil
}
