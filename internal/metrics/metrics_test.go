package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestOTelMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewOTelMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordFetch(ctx, OutcomeSuccess, 20*time.Millisecond)
	m.RecordFetch(ctx, OutcomeFailure, 5*time.Millisecond)
	m.RecordFetchJoined(ctx)
	m.RecordFetchJoined(ctx)
	m.RecordFetchJoined(ctx)
	m.RecordInvalidation(ctx, "admin")

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["tariff_catalog_fetches_total"])
	assert.Equal(t, int64(3), sums["tariff_catalog_fetch_joins_total"])
	assert.Equal(t, int64(1), sums["tariff_catalog_invalidations_total"])
}

func TestNewMeterProvider_DisabledHasNoExporter(t *testing.T) {
	provider, err := NewMeterProvider(context.Background(), ExporterConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NoError(t, provider.Shutdown(context.Background()))
}
