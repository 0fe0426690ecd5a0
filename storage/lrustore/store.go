// Package lrustore provides a size-bounded coalescingloader.Store that evicts the least recently used keys.
package lrustore

import (
	lru "github.com/hashicorp/golang-lru/v2"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// Store is a coalescingloader.Store backed by a fixed size LRU cache.
type Store[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	cache *lru.Cache[K, V]
}

var _ coalescingloader.Store[uint8, struct{}] = (*Store[uint8, struct{}])(nil)

// New creates a Store that holds at most size keys.
// onEvict is called for every key that leaves the store, including deleted and cleared keys; it may be nil.
func New[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](size int, onEvict func(K, V)) (*Store[K, V], error) {
	cache, err := lru.NewWithEvict(size, onEvict)
	if err != nil {
		return nil, err
	}
	return &Store[K, V]{cache: cache}, nil
}

// Get returns the value for the key and marks it as recently used.
func (s *Store[K, V]) Get(key K) (V, bool) {
	return s.cache.Get(key)
}

// Set stores the value for the key, evicting the least recently used key when the store is full.
func (s *Store[K, V]) Set(key K, value V) {
	s.cache.Add(key, value)
}

// Delete removes the key and reports whether it existed.
func (s *Store[K, V]) Delete(key K) bool {
	return s.cache.Remove(key)
}

// Clear removes all keys.
func (s *Store[K, V]) Clear() {
	s.cache.Purge()
}

// Len returns the number of stored keys.
func (s *Store[K, V]) Len() int {
	return s.cache.Len()
}
