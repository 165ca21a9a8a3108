package observability

import (
	"go.opentelemetry.io/otel/metric/noop"
)

// NewNoopMetrics creates metrics that do nothing.
func NewNoopMetrics() *Metrics {
	meter := noop.NewMeterProvider().Meter("")
	m := &Metrics{}

	// The noop meter never returns errors.
	m.jobDuration, _ = meter.Float64Histogram("licindex.job.duration")       //nolint:errcheck
	m.jobCount, _ = meter.Int64Counter("licindex.job.count")                 //nolint:errcheck
	m.itemsIndexed, _ = meter.Int64Counter("licindex.items.indexed")         //nolint:errcheck
	m.itemFailures, _ = meter.Int64Counter("licindex.items.failed")          //nolint:errcheck
	m.searchDuration, _ = meter.Float64Histogram("licindex.search.duration") //nolint:errcheck
	m.searchResults, _ = meter.Int64Histogram("licindex.search.results")     //nolint:errcheck
	m.bulkBatchSize, _ = meter.Int64Histogram("licindex.bulk.batch_size")    //nolint:errcheck

	return m
}
