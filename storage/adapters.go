package storage

import (
	"context"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

var _ coalescingloader.BulkCache[uint8, struct{}] = (*SilentErrorStorage[uint8, struct{}])(nil)

// SilentErrorStorage is a decorator for a coalescingloader.BulkCache that silently handles
// errors during operations. Instead of propagating the error, it calls the provided OnError function.
// Wrapping the cache of a cache proxy with it turns cache outages into cache misses.
type SilentErrorStorage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	// Storage is the underlying cache that this decorator wraps.
	Storage coalescingloader.BulkCache[K, V]

	// OnError is a function that is called when an error occurs during an operation.
	// The error is passed to the function as an argument.
	OnError func(error)
}

// GetMulti retrieves multiple entries from the underlying cache.
// If an error occurs during the retrieval process and an OnError handler is set, the error
// will be passed to the OnError handler. The method then returns nil entries and nil error.
func (s *SilentErrorStorage[K, V]) GetMulti(ctx context.Context, keys []K) ([]*coalescingloader.CacheEntry[K, V], error) {
	entries, err := s.Storage.GetMulti(ctx, keys)
	if err != nil {
		if s.OnError != nil {
			s.OnError(err)
		}
		return make([]*coalescingloader.CacheEntry[K, V], len(keys)), nil
	}
	return entries, nil
}

// SetMulti stores multiple cache entries in the underlying cache.
// If an error occurs during the storage operation and an error handler is defined,
// the error handler will be invoked with the error. The method itself always returns nil.
func (s *SilentErrorStorage[K, V]) SetMulti(ctx context.Context, entries []*coalescingloader.CacheEntry[K, V]) error {
	if err := s.Storage.SetMulti(ctx, entries); err != nil && s.OnError != nil {
		s.OnError(err)
	}
	return nil
}

var _ coalescingloader.BulkCache[uint8, struct{}] = (*FunctionsStorage[uint8, struct{}])(nil)

// FunctionsStorage is a coalescingloader.BulkCache implementation that uses functions to perform the cache operations.
type FunctionsStorage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	// SetMultiFunc stores multiple values.
	// Nil entries should be ignored.
	SetMultiFunc func(context.Context, []*coalescingloader.CacheEntry[K, V]) error

	// GetMultiFunc retrieves multiple values by keys.
	// The order of the returned values matches the order of the input keys.
	// If a key is not found or expired, it returns nil for that key.
	GetMultiFunc func(context.Context, []K) ([]*coalescingloader.CacheEntry[K, V], error)
}

// SetMulti calls the SetMultiFunc function to store multiple entries.
// If SetMultiFunc is nil, the entries are discarded.
func (s *FunctionsStorage[K, V]) SetMulti(ctx context.Context, entries []*coalescingloader.CacheEntry[K, V]) error {
	if s.SetMultiFunc == nil {
		return nil
	}
	return s.SetMultiFunc(ctx, entries)
}

// GetMulti calls the GetMultiFunc function to retrieve multiple entries.
// If GetMultiFunc is nil, every key is reported as missing.
func (s *FunctionsStorage[K, V]) GetMulti(ctx context.Context, keys []K) ([]*coalescingloader.CacheEntry[K, V], error) {
	if s.GetMultiFunc == nil {
		return make([]*coalescingloader.CacheEntry[K, V], len(keys)), nil
	}
	return s.GetMultiFunc(ctx, keys)
}

var _ coalescingloader.BulkCache[uint8, struct{}] = (*TieredStorage[uint8, struct{}])(nil)

// TieredStorage is a coalescingloader.BulkCache that looks up a fast cache first and
// falls back to a slower one for the keys the fast cache does not have.
// Entries found only in the slow cache are copied into the fast cache.
type TieredStorage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	// Near is the fast cache, typically an in-memory storage.
	Near coalescingloader.BulkCache[K, V]

	// Far is the slow cache, typically a shared remote storage.
	Far coalescingloader.BulkCache[K, V]
}

// GetMulti retrieves the entries from Near, and the missing ones from Far.
func (s *TieredStorage[K, V]) GetMulti(ctx context.Context, keys []K) ([]*coalescingloader.CacheEntry[K, V], error) {
	entries, err := s.Near.GetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}

	var missKeys []K
	var missIndexes []int
	for i, entry := range entries {
		if entry == nil {
			missKeys = append(missKeys, keys[i])
			missIndexes = append(missIndexes, i)
		}
	}
	if len(missKeys) == 0 {
		return entries, nil
	}

	farEntries, err := s.Far.GetMulti(ctx, missKeys)
	if err != nil {
		return nil, err
	}
	for i, entry := range farEntries {
		entries[missIndexes[i]] = entry
	}
	if err := s.Near.SetMulti(ctx, farEntries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetMulti stores the entries in Far and then in Near.
func (s *TieredStorage[K, V]) SetMulti(ctx context.Context, entries []*coalescingloader.CacheEntry[K, V]) error {
	if err := s.Far.SetMulti(ctx, entries); err != nil {
		return err
	}
	return s.Near.SetMulti(ctx, entries)
}
