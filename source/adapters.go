package source

import (
	"context"
	"fmt"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// MapFunc is a bulk lookup that returns the found values keyed by their keys.
type MapFunc[K coalescingloader.KeyConstraint, V any] func(context.Context, []K) (map[K]V, error)

var _ coalescingloader.FetchFunc[uint8, struct{}] = (MapFunc[uint8, struct{}])(nil).Fetch

// Fetch calls the function and orders the values by the keys.
// Keys missing from the map get the zero value.
func (f MapFunc[K, V]) Fetch(ctx context.Context, keys []K) ([]V, error) {
	m, err := f(ctx, keys)
	if err != nil {
		return nil, err
	}

	values := make([]V, len(keys))
	for i, key := range keys {
		values[i] = m[key]
	}
	return values, nil
}

// EntriesFunc is a bulk lookup that returns the found entries in any order.
// Missing keys may be omitted from the result.
type EntriesFunc[K coalescingloader.KeyConstraint, V any] func(context.Context, []K) ([]coalescingloader.Entry[K, V], error)

var _ coalescingloader.FetchFunc[uint8, struct{}] = (EntriesFunc[uint8, struct{}])(nil).Fetch

// Fetch calls the function and orders the values by the keys.
// Keys missing from the entries get the zero value.
func (f EntriesFunc[K, V]) Fetch(ctx context.Context, keys []K) ([]V, error) {
	entries, err := f(ctx, keys)
	if err != nil {
		return nil, err
	}

	// fast path: the backend already returned every key in order
	if len(entries) == len(keys) {
		inOrder := true
		for i := range entries {
			if entries[i].Key != keys[i] {
				inOrder = false
				break
			}
		}
		if inOrder {
			values := make([]V, len(entries))
			for i := range entries {
				values[i] = entries[i].Value
			}
			return values, nil
		}
	}

	m := make(map[K]V, len(entries))
	for _, entry := range entries {
		m[entry.Key] = entry.Value
	}
	values := make([]V, len(keys))
	for i, key := range keys {
		values[i] = m[key]
	}
	return values, nil
}

// SingleFunc is a lookup of one key.
type SingleFunc[K any, V any] func(context.Context, K) (V, error)

var _ coalescingloader.FetchFunc[uint8, struct{}] = (SingleFunc[uint8, struct{}])(nil).Fetch

// Fetch calls the function for every key in order and stops at the first error.
func (f SingleFunc[K, V]) Fetch(ctx context.Context, keys []K) ([]V, error) {
	values := make([]V, len(keys))
	for i, key := range keys {
		v, err := f(ctx, key)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Lint wraps the fetch function and panics when it breaks the FetchFunc contract,
// i.e. when it returns a number of values different from the number of keys.
// Useful in tests, since the loaders only log such results.
func Lint[K any, V any](fetch coalescingloader.FetchFunc[K, V]) coalescingloader.FetchFunc[K, V] {
	return func(ctx context.Context, keys []K) ([]V, error) {
		values, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		if len(values) != len(keys) {
			panic(fmt.Sprintf("must return results for all keys in the same order as the keys: got %d values for %d keys", len(values), len(keys)))
		}
		return values, nil
	}
}
