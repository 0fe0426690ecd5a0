// Package mappedloader provides a loader that transforms the values of another loader.
//
// The inner loader keeps its batching and deduplication; the mapping runs after the inner load
// returns, once per requested key. Mapped loaders can be stacked because a Loader[K, V, M] is
// itself a coalescingloader.Loader[K, M].
package mappedloader

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// Loader maps the values loaded by the inner loader.
type Loader[K any, V any, M any] struct {
	inner         coalescingloader.Loader[K, V]
	mapper        func(context.Context, V, K) (M, error)
	concurrent    bool
	maxGoroutines int
}

var _ coalescingloader.Loader[uint8, struct{}] = (*Loader[uint8, int, struct{}])(nil)

// New creates a Loader that maps every loaded value with the synchronous function.
func New[K any, V any, M any](inner coalescingloader.Loader[K, V], mapper func(V, K) M) *Loader[K, V, M] {
	return &Loader[K, V, M]{
		inner: inner,
		mapper: func(_ context.Context, v V, key K) (M, error) {
			return mapper(v, key), nil
		},
	}
}

// NewContext creates a Loader that maps every loaded value with a function that may block or fail.
// LoadMany runs the mappings of all values concurrently and waits for all of them.
func NewContext[K any, V any, M any](inner coalescingloader.Loader[K, V], mapper func(context.Context, V, K) (M, error), opts ...Option[K, V, M]) *Loader[K, V, M] {
	l := &Loader[K, V, M]{
		inner:      inner,
		mapper:     mapper,
		concurrent: true,
	}
	for _, o := range opts {
		o.apply(l)
	}
	return l
}

// Load loads the value for the key from the inner loader and maps it.
func (l *Loader[K, V, M]) Load(ctx context.Context, key K) (M, error) {
	v, err := l.inner.Load(ctx, key)
	if err != nil {
		var zero M
		return zero, err
	}
	return l.mapper(ctx, v, key)
}

// LoadMany loads the values for the keys from the inner loader and maps each of them with its key.
// The result is fully mapped; if any mapping fails, LoadMany returns no values and every mapping error joined.
func (l *Loader[K, V, M]) LoadMany(ctx context.Context, keys []K) ([]M, error) {
	values, err := l.inner.LoadMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	if !l.concurrent {
		mapped := make([]M, len(values))
		for i, v := range values {
			if mapped[i], err = l.mapper(ctx, v, keys[i]); err != nil {
				return nil, err
			}
		}
		return mapped, nil
	}

	indexes := make([]int, len(values))
	for i := range indexes {
		indexes[i] = i
	}
	mapper := iter.Mapper[int, M]{MaxGoroutines: l.maxGoroutines}
	mapped, err := mapper.MapErr(indexes, func(i *int) (M, error) {
		return l.mapper(ctx, values[*i], keys[*i])
	})
	if err != nil {
		return nil, err
	}
	return mapped, nil
}
