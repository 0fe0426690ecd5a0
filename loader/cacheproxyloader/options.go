package cacheproxyloader

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/loader/batchloader"
	"github.com/karupanerura/coalescing-loader/metrics"
)

// DefaultName is the loader name used in logs and metrics when WithName is not given.
const DefaultName = "cacheproxy"

// Option is an option for the cache proxy.
type Option[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] interface {
	apply(*proxy[K, V])
}

type optionFunc[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] func(*proxy[K, V])

func (f optionFunc[K, V]) apply(p *proxy[K, V]) {
	f(p)
}

// WithBatchOptions passes options to the underlying batchloader.Loader.
// They are applied after the proxy's own defaults, so they can override the key dedup.
func WithBatchOptions[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](opts ...batchloader.Option[K, V]) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.batchOptions = append(p.batchOptions, opts...)
	})
}

// WithTTL sets the lifetime of the entries written back to the cache.
// Zero means the entries never expire.
func WithTTL[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](ttl time.Duration) Option[K, V] {
	if ttl < 0 {
		panic("ttl must not be negative")
	}
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.ttl = ttl
	})
}

// WithClock sets the clock used to compute the expiration time of the written entries.
// The default is coalescingloader.SystemClock.
func WithClock[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](clock coalescingloader.Clock) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.clock = clock
	})
}

// WithWriteBackErrorHandler sets the function called when a write-back fails or panics.
// It is called on the write-back goroutine.
func WithWriteBackErrorHandler[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](handler func(error)) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.onWriteBackError = handler
	})
}

// WithBackgroundContextProvider sets the context provider for flushes and write-backs.
func WithBackgroundContextProvider[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.context = provider
	})
}

// WithLogger sets the logger.
func WithLogger[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](logger zerolog.Logger) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.logger = logger
	})
}

// WithMetrics sets the metrics collector.
func WithMetrics[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](collector *metrics.Collector) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.metrics = collector
	})
}

// WithName sets the loader name used in logs and metrics.
func WithName[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](name string) Option[K, V] {
	return optionFunc[K, V](func(p *proxy[K, V]) {
		p.name = name
	})
}
