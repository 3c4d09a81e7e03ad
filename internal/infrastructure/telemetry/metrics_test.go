package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collectByName(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("dronehub"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMeterProvider_NilIsDisabled(t *testing.T) {
	var mp *MeterProvider
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("dronehub"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestCounterAndHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	require.True(t, mp.IsEnabled())
	meter := mp.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, "shop_test_total", "test counter", "{item}")
	require.NoError(t, err)
	counter.Inc(ctx, AttrCarrier.String("gls"))
	counter.Add(ctx, 4, AttrCarrier.String("gls"))
	counter.Inc(ctx, AttrCarrier.String("inpost"))

	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "shop_test_seconds",
		Unit:       "s",
		Boundaries: []float64{0.1, 1},
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 50*time.Millisecond)
	hist.RecordDuration(ctx, 2*time.Second)
	hist.Record(ctx, 0.5)

	metrics := collectByName(t, reader)

	sum, ok := metrics["shop_test_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byCarrier := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(AttrCarrier)
		byCarrier[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"gls": 5, "inpost": 1}, byCarrier)

	h, ok := metrics["shop_test_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	dp := h.DataPoints[0]
	assert.Equal(t, uint64(3), dp.Count)
	assert.Equal(t, []float64{0.1, 1}, dp.Bounds)
	assert.Equal(t, []uint64{1, 1, 1}, dp.BucketCounts)
}
