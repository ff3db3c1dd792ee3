package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "correction_pricing"

// Metrics exposes pricing service metrics.
type Metrics interface {
	RecordFetch(ctx context.Context, outcome string, elapsed time.Duration)
	RecordFetchJoined(ctx context.Context)
	RecordInvalidation(ctx context.Context, origin string)
}

// Fetch outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSuperseded = "superseded"
)

// NoopMetrics discards everything.
type NoopMetrics struct{}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (m *NoopMetrics) RecordFetch(ctx context.Context, outcome string, elapsed time.Duration) {}

func (m *NoopMetrics) RecordFetchJoined(ctx context.Context) {}

func (m *NoopMetrics) RecordInvalidation(ctx context.Context, origin string) {}

// OTelMetrics records catalog cache activity through an OpenTelemetry meter.
type OTelMetrics struct {
	fetchesTotal       metric.Int64Counter
	fetchDuration      metric.Float64Histogram
	joinsTotal         metric.Int64Counter
	invalidationsTotal metric.Int64Counter
}

// NewOTelMetrics creates the instruments on the given provider.
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	meter := provider.Meter(meterName)

	fetchesTotal, err := meter.Int64Counter(
		"tariff_catalog_fetches_total",
		metric.WithDescription("Catalog fetches by outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetches counter: %w", err)
	}

	fetchDuration, err := meter.Float64Histogram(
		"tariff_catalog_fetch_duration_seconds",
		metric.WithDescription("Catalog fetch latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch duration histogram: %w", err)
	}

	joinsTotal, err := meter.Int64Counter(
		"tariff_catalog_fetch_joins_total",
		metric.WithDescription("Reads that joined an in-flight fetch instead of starting one"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating joins counter: %w", err)
	}

	invalidationsTotal, err := meter.Int64Counter(
		"tariff_catalog_invalidations_total",
		metric.WithDescription("Catalog invalidations by origin"),
		metric.WithUnit("{invalidation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating invalidations counter: %w", err)
	}

	return &OTelMetrics{
		fetchesTotal:       fetchesTotal,
		fetchDuration:      fetchDuration,
		joinsTotal:         joinsTotal,
		invalidationsTotal: invalidationsTotal,
	}, nil
}

// RecordFetch counts a finished fetch and its latency by outcome.
func (m *OTelMetrics) RecordFetch(ctx context.Context, outcome string, elapsed time.Duration) {
	opt := metric.WithAttributes(attribute.String("outcome", outcome))
	m.fetchesTotal.Add(ctx, 1, opt)
	m.fetchDuration.Record(ctx, elapsed.Seconds(), opt)
}

// RecordFetchJoined counts a read that waited on a running fetch.
func (m *OTelMetrics) RecordFetchJoined(ctx context.Context) {
	m.joinsTotal.Add(ctx, 1)
}

// RecordInvalidation counts an invalidation by origin.
func (m *OTelMetrics) RecordInvalidation(ctx context.Context, origin string) {
	m.invalidationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", origin)))
}
