package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider builds a MeterProvider and registers it as the global
// one, the metric-side counterpart to NewTracerProvider. A periodic
// reader would need a collector endpoint Empirica has no concept of yet,
// so instruments accumulate in-process; call Metrics against them for
// process logs or a future reader.
func NewMeterProvider() *sdkmetric.MeterProvider {
	mp := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(mp)
	return mp
}

// CascadeMetrics holds the instruments recorded once per cascade phase
// transition and once per checkpoint write.
type CascadeMetrics struct {
	phaseDuration       metric.Float64Histogram
	checkpointsWritten  metric.Int64Counter
	investigationRounds metric.Int64Histogram
}

// NewCascadeMetrics creates the instrument set from the global meter.
func NewCascadeMetrics() (*CascadeMetrics, error) {
	meter := otel.Meter("github.com/nubaeon/empirica/pkg/cascade")

	phaseDuration, err := meter.Float64Histogram(
		"empirica.cascade.phase_duration",
		metric.WithDescription("Wall-clock duration of a single cascade phase"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create phase duration histogram: %w", err)
	}

	checkpointsWritten, err := meter.Int64Counter(
		"empirica.checkpoint.written",
		metric.WithDescription("Number of checkpoints appended to the VCS notes ledger"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkpoints written counter: %w", err)
	}

	investigationRounds, err := meter.Int64Histogram(
		"empirica.cascade.investigation_rounds",
		metric.WithDescription("INVESTIGATE rounds consumed before CHECK accepted or the budget was exhausted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create investigation rounds histogram: %w", err)
	}

	return &CascadeMetrics{
		phaseDuration:       phaseDuration,
		checkpointsWritten:  checkpointsWritten,
		investigationRounds: investigationRounds,
	}, nil
}

// RecordPhase records how long a single phase took.
func (m *CascadeMetrics) RecordPhase(ctx context.Context, phase string, durationMS float64) {
	if m == nil {
		return
	}
	m.phaseDuration.Record(ctx, durationMS, metric.WithAttributes(
		attribute.String("phase", phase),
	))
}

// RecordCheckpointWritten increments the checkpoint write counter.
func (m *CascadeMetrics) RecordCheckpointWritten(ctx context.Context) {
	if m == nil {
		return
	}
	m.checkpointsWritten.Add(ctx, 1)
}

// RecordInvestigationRounds records the number of INVESTIGATE rounds a
// cascade run consumed.
func (m *CascadeMetrics) RecordInvestigationRounds(ctx context.Context, rounds int) {
	if m == nil {
		return
	}
	m.investigationRounds.Record(ctx, int64(rounds))
}

// LogShutdownError is a small helper so callers can defer a Shutdown call
// and still surface failures through structured logging instead of
// discarding them.
func LogShutdownError(logger *slog.Logger, component string, err error) {
	if err != nil {
		logger.Warn("telemetry shutdown failed", "component", component, "error", err)
	}
}
