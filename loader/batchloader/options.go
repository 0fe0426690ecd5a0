package batchloader

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/karupanerura/coalescing-loader/metrics"
)

// DefaultName is the name of a Loader that is not given WithName.
const DefaultName = "default"

// Option is the interface for the options of the Loader.
type Option[K any, V any] interface {
	apply(*Loader[K, V])
}

type optionFunc[K any, V any] func(*Loader[K, V])

func (f optionFunc[K, V]) apply(l *Loader[K, V]) {
	f(l)
}

// WithWait sets the length of the scheduling window.
// Loads issued within the window after the first one join the same batch.
// The default is zero, which flushes as soon as the flush goroutine is scheduled.
func WithWait[K any, V any](d time.Duration) Option[K, V] {
	if d < 0 {
		panic("wait must not be negative")
	}
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.wait = d
	})
}

// WithMaxBatch sets the maximum number of keys passed to one fetch call.
// Larger batches are split into chunks. The default is unbounded.
func WithMaxBatch[K any, V any](size int) Option[K, V] {
	if size <= 0 {
		panic("max batch size must be greater than 0")
	}
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.maxBatch = size
	})
}

// WithChunkWait sets the delay between the submissions of consecutive chunks.
func WithChunkWait[K any, V any](d time.Duration) Option[K, V] {
	if d < 0 {
		panic("chunk wait must not be negative")
	}
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.chunkWait = d
	})
}

// WithMaxConcurrentChunks limits the number of chunks fetched at the same time.
// The default is unlimited.
func WithMaxConcurrentChunks[K any, V any](n int) Option[K, V] {
	if n <= 0 {
		panic("max concurrent chunks must be greater than 0")
	}
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.maxConcurrentChunks = n
	})
}

// WithKeyIdentity deduplicates the keys of a batch by the identity returned from the function.
// Keys with the same identity are fetched once and every caller receives the same value.
func WithKeyIdentity[K any, V any](identify func(K) string) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.dedupe = func(keys []K) ([]K, []int) {
			return dedupe(keys, identify)
		}
	})
}

// WithKeyDedup deduplicates the keys of a batch by key equality.
func WithKeyDedup[K comparable, V any]() Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.dedupe = func(keys []K) ([]K, []int) {
			return dedupe(keys, func(key K) K { return key })
		}
	})
}

// WithoutKeyDedup disables the deduplication set by a previous option.
func WithoutKeyDedup[K any, V any]() Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.dedupe = nil
	})
}

// WithBackgroundContextProvider sets the context provider to the loader.
// The fetch function is called with the provided context because a batch outlives any single caller.
// The provider must return a new context for each call.
// The default context provider is context.Background.
func WithBackgroundContextProvider[K any, V any](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.context = provider
	})
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger[K any, V any](logger zerolog.Logger) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.logger = logger
	})
}

// WithMetrics sets the metrics collector.
func WithMetrics[K any, V any](collector *metrics.Collector) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.metrics = collector
	})
}

// WithName sets the name used in logs and metric labels.
func WithName[K any, V any](name string) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.name = name
	})
}

// WithConfig applies the scheduling settings of the config.
// Zero values keep the current settings, so options given before WithConfig are not overwritten by them.
func WithConfig[K any, V any](cfg Config) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		if cfg.Wait > 0 {
			l.wait = cfg.Wait
		}
		if cfg.ChunkWait > 0 {
			l.chunkWait = cfg.ChunkWait
		}
		if cfg.MaxBatch > 0 {
			l.maxBatch = cfg.MaxBatch
		}
		if cfg.MaxConcurrentChunks > 0 {
			l.maxConcurrentChunks = cfg.MaxConcurrentChunks
		}
	})
}
