package emitter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/warden/pkg/resource"
)

// MetricsEmitter records pass results as OTEL metrics. With the prometheus
// exporter installed they are served as warden_* series.
type MetricsEmitter struct {
	actionsTotal metric.Int64Counter
	passDuration metric.Float64Histogram
	passErrors   metric.Int64Counter
}

// NewMetricsEmitter creates a metrics emitter on the given meter.
func NewMetricsEmitter(meter metric.Meter) (*MetricsEmitter, error) {
	e := &MetricsEmitter{}
	var err error

	e.actionsTotal, err = meter.Int64Counter(
		"warden_actions_total",
		metric.WithDescription("Outcomes recorded per pass and action"),
	)
	if err != nil {
		return nil, fmt.Errorf("create actions counter: %w", err)
	}

	e.passDuration, err = meter.Float64Histogram(
		"warden_pass_duration_seconds",
		metric.WithDescription("Time taken by a pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pass_duration histogram: %w", err)
	}

	e.passErrors, err = meter.Int64Counter(
		"warden_pass_errors_total",
		metric.WithDescription("Passes aborted by a provider error"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pass_errors counter: %w", err)
	}

	return e, nil
}

// Emit records the pass result.
func (e *MetricsEmitter) Emit(ctx context.Context, result resource.PassResult) error {
	pass := attribute.String("pass", result.Pass)

	e.passDuration.Record(ctx, result.Duration.Seconds(), metric.WithAttributes(pass))

	if result.Error != nil {
		e.passErrors.Add(ctx, 1, metric.WithAttributes(pass))
	}

	counts := make(map[resource.Action]int64)
	for _, o := range result.Outcomes {
		counts[o.Action]++
	}
	for action, n := range counts {
		e.actionsTotal.Add(ctx, n, metric.WithAttributes(pass, attribute.String("action", string(action))))
	}

	return nil
}

// Close is a no-op; the meter provider owns the exporter.
func (e *MetricsEmitter) Close() error {
	return nil
}
