package daemon

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds daemon operational metrics.
type Metrics struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewMetrics creates daemon metrics on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runs, err := meter.Int64Counter(
		"warden.daemon.runs",
		metric.WithDescription("Number of scheduled invocations"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"warden.daemon.run.duration",
		metric.WithDescription("Duration of scheduled invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runs:        runs,
		runDuration: runDuration,
	}, nil
}

// RecordRun records one invocation with its outcome ("success" or "error").
func (m *Metrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}
