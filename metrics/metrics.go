// Package metrics provides Prometheus metrics for the loaders of this module.
//
// A nil *Collector is valid and records nothing, so loaders can take it as an optional dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector collects flush, fetch and cache metrics labeled by loader name.
// It is safe for concurrent use.
type Collector struct {
	flushesTotal      *prometheus.CounterVec
	flushKeys         *prometheus.HistogramVec
	dedupedKeysTotal  *prometheus.CounterVec
	fetchCallsTotal   *prometheus.CounterVec
	fetchErrorsTotal  *prometheus.CounterVec
	cacheHitsTotal    *prometheus.CounterVec
	cacheMissesTotal  *prometheus.CounterVec
	writeBackErrTotal *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics to the registerer.
func NewCollector(registry prometheus.Registerer) *Collector {
	return &Collector{
		flushesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_flushes_total",
				Help: "Total number of flushed batches",
			},
			[]string{"loader"},
		),
		flushKeys: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coalescing_loader_flush_keys",
				Help:    "Number of keys enqueued per flushed batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"loader"},
		),
		dedupedKeysTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_deduplicated_keys_total",
				Help: "Total number of duplicated keys removed before fetching",
			},
			[]string{"loader"},
		),
		fetchCallsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_fetch_calls_total",
				Help: "Total number of fetch function calls, one per chunk",
			},
			[]string{"loader"},
		),
		fetchErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_fetch_errors_total",
				Help: "Total number of failed flushes",
			},
			[]string{"loader"},
		),
		cacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_cache_hits_total",
				Help: "Total number of keys served from a cache",
			},
			[]string{"loader"},
		),
		cacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_cache_misses_total",
				Help: "Total number of keys forwarded to the inner loader",
			},
			[]string{"loader"},
		),
		writeBackErrTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coalescing_loader_write_back_errors_total",
				Help: "Total number of failed cache write-backs",
			},
			[]string{"loader"},
		),
	}
}

// ObserveFlush records a flushed batch.
// queued is the number of enqueued keys, unique the number of keys sent to the fetch function,
// and chunks the number of fetch calls.
func (c *Collector) ObserveFlush(loader string, queued, unique, chunks int) {
	if c == nil {
		return
	}
	c.flushesTotal.WithLabelValues(loader).Inc()
	c.flushKeys.WithLabelValues(loader).Observe(float64(queued))
	c.dedupedKeysTotal.WithLabelValues(loader).Add(float64(queued - unique))
	c.fetchCallsTotal.WithLabelValues(loader).Add(float64(chunks))
}

// ObserveFetchError records a failed flush.
func (c *Collector) ObserveFetchError(loader string) {
	if c == nil {
		return
	}
	c.fetchErrorsTotal.WithLabelValues(loader).Inc()
}

// ObserveCache records cache hits and misses.
func (c *Collector) ObserveCache(loader string, hits, misses int) {
	if c == nil {
		return
	}
	c.cacheHitsTotal.WithLabelValues(loader).Add(float64(hits))
	c.cacheMissesTotal.WithLabelValues(loader).Add(float64(misses))
}

// ObserveWriteBackError records a failed cache write-back.
func (c *Collector) ObserveWriteBackError(loader string) {
	if c == nil {
		return
	}
	c.writeBackErrTotal.WithLabelValues(loader).Inc()
}
