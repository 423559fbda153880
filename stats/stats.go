// Package stats provides a unified interface for collecting partstore
// metrics.
package stats

// Metric names used throughout the library.
const (
	// Facade metrics.
	MetricTokenCacheHits   = "partstore_token_cache_hits_total"
	MetricTokenCacheMisses = "partstore_token_cache_misses_total"
	MetricDataCacheHits    = "partstore_data_cache_hits_total"
	MetricDataCacheMisses  = "partstore_data_cache_misses_total"
	MetricBackendLoads     = "partstore_backend_loads_total"
	MetricBackendWrites    = "partstore_backend_writes_total"
	MetricBackendErrors    = "partstore_backend_errors_total"
	MetricLoadSeconds      = "partstore_backend_load_seconds"

	// Block cache metrics.
	MetricBlockCacheHits    = "partstore_block_cache_hits_total"
	MetricBlockCacheMisses  = "partstore_block_cache_misses_total"
	MetricBlockCacheEntries = "partstore_block_cache_entries"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

// Noop discards all metrics. Useful for testing or when metrics are not
// needed.
type Noop struct{}

// Compile-time check that Noop implements Collector.
var _ Collector = Noop{}

func (Noop) IncCounter(string, int64)         {}
func (Noop) SetGauge(string, int64)           {}
func (Noop) ObserveHistogram(string, float64) {}
