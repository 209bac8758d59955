package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordRun(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordRun(context.Background(), "success", time.Second)
	m.RecordRun(context.Background(), "success", time.Second)
	m.RecordRun(context.Background(), "error", time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var runs metricdata.Sum[int64]
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name == "warden.daemon.runs" {
				runs, found = metric.Data.(metricdata.Sum[int64])
			}
		}
	}
	require.True(t, found)

	byStatus := map[string]int64{}
	for _, dp := range runs.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[v.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byStatus["success"])
	assert.Equal(t, int64(1), byStatus["error"])
}
