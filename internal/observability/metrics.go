// Package observability provides OpenTelemetry metric instrumentation
// for the indexing pipeline.
//
// All instruments are opt-in. When no MeterProvider is configured the
// no-op implementation is used and recording has zero overhead.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation name for metrics.
const MeterName = "github.com/licindex/licindex"

// Attribute keys used across instruments.
const (
	AttrJobType   = "licindex.job.type"
	AttrJobStatus = "licindex.job.status"
	AttrRecipe    = "licindex.recipe"
)

// Metrics holds the indexing-specific metric instruments.
type Metrics struct {
	jobDuration    metric.Float64Histogram
	jobCount       metric.Int64Counter
	itemsIndexed   metric.Int64Counter
	itemFailures   metric.Int64Counter
	searchDuration metric.Float64Histogram
	searchResults  metric.Int64Histogram
	bulkBatchSize  metric.Int64Histogram
}

// NewMetrics creates a Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Instrument creation only fails on invalid parameters. Fall back to
	// a bare instrument so recording stays safe either way.
	var err error

	m.jobDuration, err = meter.Float64Histogram(
		"licindex.job.duration",
		metric.WithDescription("Duration of indexing jobs in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.jobDuration, _ = meter.Float64Histogram("licindex.job.duration")
	}

	m.jobCount, err = meter.Int64Counter(
		"licindex.job.count",
		metric.WithDescription("Total number of finished jobs"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		m.jobCount, _ = meter.Int64Counter("licindex.job.count")
	}

	m.itemsIndexed, err = meter.Int64Counter(
		"licindex.items.indexed",
		metric.WithDescription("Total number of publications written to the index"),
		metric.WithUnit("{publication}"),
	)
	if err != nil {
		m.itemsIndexed, _ = meter.Int64Counter("licindex.items.indexed")
	}

	m.itemFailures, err = meter.Int64Counter(
		"licindex.items.failed",
		metric.WithDescription("Total number of publications that failed to index"),
		metric.WithUnit("{publication}"),
	)
	if err != nil {
		m.itemFailures, _ = meter.Int64Counter("licindex.items.failed")
	}

	m.searchDuration, err = meter.Float64Histogram(
		"licindex.search.duration",
		metric.WithDescription("Duration of search requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.searchDuration, _ = meter.Float64Histogram("licindex.search.duration")
	}

	m.searchResults, err = meter.Int64Histogram(
		"licindex.search.results",
		metric.WithDescription("Number of hits returned per search"),
		metric.WithUnit("{publication}"),
	)
	if err != nil {
		m.searchResults, _ = meter.Int64Histogram("licindex.search.results")
	}

	m.bulkBatchSize, err = meter.Int64Histogram(
		"licindex.bulk.batch_size",
		metric.WithDescription("Number of documents per bulk index write"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		m.bulkBatchSize, _ = meter.Int64Histogram("licindex.bulk.batch_size")
	}

	return m
}

// RecordJob records a finished job with its terminal status.
func (m *Metrics) RecordJob(ctx context.Context, jobType, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrJobType, jobType),
		attribute.String(AttrJobStatus, status),
	)
	m.jobDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.jobCount.Add(ctx, 1, attrs)
}

// RecordItems records successfully indexed and failed item counts for a recipe.
func (m *Metrics) RecordItems(ctx context.Context, recipe string, indexed, failed int64) {
	attrs := metric.WithAttributes(attribute.String(AttrRecipe, recipe))
	if indexed > 0 {
		m.itemsIndexed.Add(ctx, indexed, attrs)
	}
	if failed > 0 {
		m.itemFailures.Add(ctx, failed, attrs)
	}
}

// RecordSearch records a completed search request.
func (m *Metrics) RecordSearch(ctx context.Context, duration time.Duration, hits int64) {
	m.searchDuration.Record(ctx, float64(duration.Milliseconds()))
	m.searchResults.Record(ctx, hits)
}

// RecordBulkBatch records the size of one bulk index write.
func (m *Metrics) RecordBulkBatch(ctx context.Context, size int) {
	m.bulkBatchSize.Record(ctx, int64(size))
}
