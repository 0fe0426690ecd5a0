package cacheloader

import (
	"context"

	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/metrics"
)

// DefaultName is the name of a Loader that is not given WithName.
const DefaultName = "default"

// Option is the interface for the options of the Loader.
type Option[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] interface {
	apply(*Loader[K, V])
}

type optionFunc[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] func(*Loader[K, V])

func (f optionFunc[K, V]) apply(l *Loader[K, V]) {
	f(l)
}

// WithStore sets the store that keeps the resolved values.
// The default store is an unbounded map.
func WithStore[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](store coalescingloader.Store[K, V]) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.store = store
	})
}

// WithCloner sets the value cloner to the loader.
// Every value handed out to a caller is cloned, so callers cannot mutate the stored values.
// The default value cloner is coalescingloader.NopValueCloner.
func WithCloner[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](cloner coalescingloader.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.cloner = cloner
	})
}

// WithBackgroundContextProvider sets the context provider to the loader.
// The provider must return a new context for each call.
// The default context provider is context.Background.
func WithBackgroundContextProvider[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.context = provider
	})
}

// WithLogger sets the logger.
// Failed inner loads are logged at debug level and malformed inner results at warn level.
func WithLogger[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](logger zerolog.Logger) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.logger = logger
	})
}

// WithMetrics sets the metrics collector.
func WithMetrics[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](collector *metrics.Collector) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.metrics = collector
	})
}

// WithName sets the name used in logs and metric labels.
func WithName[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](name string) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.name = name
	})
}
