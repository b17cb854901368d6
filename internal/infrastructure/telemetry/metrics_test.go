package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{ServiceName: "ledger-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("ledger"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	reader, provider := newTestMeter(t)
	ctx := context.Background()

	c, err := telemetry.NewCounter(provider.Meter("test"), "test.counter", "a counter", "1")
	require.NoError(t, err)

	c.Inc(ctx)
	c.Add(ctx, 4, attribute.String("k", "v"))

	metrics := collect(t, reader)
	require.Contains(t, metrics, "test.counter")
	assert.Equal(t, int64(5), sumOf(t, metrics["test.counter"]))
}

func TestHistogram(t *testing.T) {
	reader, provider := newTestMeter(t)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(provider.Meter("test"), telemetry.HistogramOpts{
		Name:       "test.duration",
		Unit:       "s",
		Boundaries: []float64{0.1, 1},
	})
	require.NoError(t, err)

	h.Record(ctx, 0.05)
	h.RecordDuration(ctx, 2*time.Second)

	metrics := collect(t, reader)
	hist, ok := metrics["test.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, []float64{0.1, 1}, hist.DataPoints[0].Bounds)
}

func TestLedgerMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("records ledger activity", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		m, err := telemetry.NewLedgerMetrics(provider.Meter("ledger"))
		require.NoError(t, err)

		m.VoucherPosted(ctx, "tenant-a", "manual")
		m.VoucherPosted(ctx, "tenant-a", "closing")
		m.VoucherVoided(ctx, "tenant-a")
		m.PeriodClosed(ctx, "tenant-a", "hq")

		var okErr error
		m.ObserveOperation(ctx, "voucher.confirm", time.Now(), &okErr)
		failed := errors.New("boom")
		m.ObserveOperation(ctx, "voucher.confirm", time.Now(), &failed)

		metrics := collect(t, reader)
		assert.Equal(t, int64(2), sumOf(t, metrics["ledger.vouchers.posted"]))
		assert.Equal(t, int64(1), sumOf(t, metrics["ledger.vouchers.voided"]))
		assert.Equal(t, int64(1), sumOf(t, metrics["ledger.periods.closed"]))
		assert.Equal(t, int64(1), sumOf(t, metrics["ledger.operation.errors"]))

		hist, ok := metrics["ledger.operation.duration"].Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		assert.Len(t, hist.DataPoints, 2, "ok and error outcomes are separate series")
	})

	t.Run("nil metrics are a no-op", func(t *testing.T) {
		var m *telemetry.LedgerMetrics
		assert.NotPanics(t, func() {
			m.VoucherPosted(ctx, "t", "manual")
			m.VoucherVoided(ctx, "t")
			m.PeriodClosed(ctx, "t", "o")
			m.ObserveOperation(ctx, "x", time.Now(), nil)
		})
	})
}
