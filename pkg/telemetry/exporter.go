package telemetry

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// slogSpanExporter implements sdktrace.SpanExporter by logging each
// finished span as a structured log line. Empirica has no trace collector
// of its own, so spans are surfaced through the same structured log stream
// everything else writes to rather than dropped on the floor.
type slogSpanExporter struct {
	logger *slog.Logger
}

func newSlogSpanExporter(logger *slog.Logger) *slogSpanExporter {
	return &slogSpanExporter{logger: logger}
}

// ExportSpans logs a summary line per span. It never returns an error:
// a logging failure must not break the cascade it is observing.
func (e *slogSpanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		attrs := make([]any, 0, len(span.Attributes())*2+4)
		attrs = append(attrs,
			"span", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds(),
		)
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		e.logger.Info("span", attrs...)
	}
	return nil
}

// Shutdown is a no-op; the exporter holds no resources of its own.
func (e *slogSpanExporter) Shutdown(context.Context) error {
	return nil
}
