// Package pureloader provides a loader that calls the fetch function directly for every call.
package pureloader

import (
	"context"
	"errors"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// ErrWrongLength is returned when the fetch function returns a different number of values than keys.
var ErrWrongLength = errors.New("fetch function returned a wrong number of values")

// Loader is a simple Loader for sequential tasks. Useful for testing.
// It does no batching and no deduplication: every Load and LoadMany calls the fetch function once.
type Loader[K any, V any] struct {
	fetch coalescingloader.FetchFunc[K, V]
}

var _ coalescingloader.Loader[uint8, struct{}] = (*Loader[uint8, struct{}])(nil)

// New creates a new Loader with the given fetch function.
func New[K any, V any](fetch coalescingloader.FetchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{fetch: fetch}
}

// Load fetches the value for the key.
func (p *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	values, err := p.LoadMany(ctx, []K{key})
	if err != nil {
		var zero V
		return zero, err
	}
	return values[0], nil
}

// LoadMany fetches the values for the keys in one call.
// If the keys are empty, it returns an empty slice without calling the fetch function.
func (p *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	if len(keys) == 0 {
		return []V{}, nil
	}

	values, err := p.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(values) != len(keys) {
		return nil, ErrWrongLength
	}
	return values, nil
}
