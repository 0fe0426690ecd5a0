// Package mapstore provides an unbounded map based coalescingloader.Store.
package mapstore

import (
	"sync"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// Store is a thread-safe map.
type Store[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	mu sync.RWMutex
	m  map[K]V
}

var _ coalescingloader.Store[uint8, struct{}] = (*Store[uint8, struct{}])(nil)

// New creates an empty Store.
func New[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint]() *Store[K, V] {
	return &Store[K, V]{m: map[K]V{}}
}

// Get returns the value for the key and whether it exists.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	return v, ok
}

// Set stores the value for the key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = value
}

// Delete removes the key and reports whether it existed.
func (s *Store[K, V]) Delete(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.m[key]
	delete(s.m, key)
	return ok
}

// Clear removes all keys.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.m)
}

// Len returns the number of stored keys.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.m)
}
