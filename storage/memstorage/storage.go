package memstorage

import (
	"context"
	"slices"
	"sync"
	"time"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// NewInMemoryStorage creates a new in-memory bulk cache.
// The storage can be distributed across multiple buckets to reduce lock contention.
// The storage uses a hash function to distribute the keys across the buckets.
func NewInMemoryStorage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](opts ...Option[K, V]) coalescingloader.BulkCache[K, V] {
	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}
	if options.cloner == nil {
		options.cloner = coalescingloader.DefaultValueCloner[V]()
	}

	if options.bucketsSize == 1 {
		return &storage[K, V]{
			bucket:  newBucket(&options),
			options: &options,
		}
	}

	buckets := make([]*bucket[K, V], options.bucketsSize)
	for i := range buckets {
		buckets[i] = newBucket(&options)
	}
	return &distributedStorage[K, V]{
		buckets: buckets,
		options: &options,
	}
}

// bucket is a map guarded by its own lock.
// Callers hold the lock while calling get and set.
type bucket[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	mu      sync.RWMutex
	m       map[K]*coalescingloader.CacheEntry[K, V]
	options *options[K, V]
}

func newBucket[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](o *options[K, V]) *bucket[K, V] {
	return &bucket[K, V]{m: map[K]*coalescingloader.CacheEntry[K, V]{}, options: o}
}

func (b *bucket[K, V]) get(key K, now time.Time) *coalescingloader.CacheEntry[K, V] {
	entry, ok := b.m[key]
	if !ok || b.options.policy.IsExpired(now, entry.ExpiresAt) {
		return nil
	}
	return b.clone(entry)
}

// set stores a copy of the entry. An entry that is already expired removes the stored one instead.
func (b *bucket[K, V]) set(entry *coalescingloader.CacheEntry[K, V], now time.Time) {
	if b.options.policy.IsExpired(now, entry.ExpiresAt) {
		delete(b.m, entry.Key)
		return
	}
	b.m[entry.Key] = b.clone(entry)
}

func (b *bucket[K, V]) clone(entry *coalescingloader.CacheEntry[K, V]) *coalescingloader.CacheEntry[K, V] {
	return &coalescingloader.CacheEntry[K, V]{
		Entry: coalescingloader.Entry[K, V]{
			Key:   entry.Key,
			Value: b.options.cloner.CloneValue(entry.Value),
		},
		ExpiresAt: entry.ExpiresAt,
	}
}

type storage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	bucket  *bucket[K, V]
	options *options[K, V]
}

var _ coalescingloader.BulkCache[uint8, struct{}] = (*storage[uint8, struct{}])(nil)

func (s *storage[K, V]) GetMulti(_ context.Context, keys []K) ([]*coalescingloader.CacheEntry[K, V], error) {
	s.bucket.mu.RLock()
	defer s.bucket.mu.RUnlock()

	now := s.options.clock.Now()
	result := make([]*coalescingloader.CacheEntry[K, V], len(keys))
	for i, key := range keys {
		result[i] = s.bucket.get(key, now)
	}
	return result, nil
}

func (s *storage[K, V]) SetMulti(_ context.Context, entries []*coalescingloader.CacheEntry[K, V]) error {
	s.bucket.mu.Lock()
	defer s.bucket.mu.Unlock()

	now := s.options.clock.Now()
	for _, entry := range entries {
		if entry != nil {
			s.bucket.set(entry, now)
		}
	}
	return nil
}

type distributedStorage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	buckets []*bucket[K, V]
	options *options[K, V]
}

var _ coalescingloader.BulkCache[uint8, struct{}] = (*distributedStorage[uint8, struct{}])(nil)

func (s *distributedStorage[K, V]) bucketOf(key K) int {
	index := s.options.hashKey(key) % len(s.buckets)
	if index < 0 {
		index = -index
	}
	return index
}

// lockOrder returns the distinct bucket indexes in ascending order.
// Every multi-bucket operation locks in this order.
func lockOrder(indexes []int) []int {
	order := slices.Clone(indexes)
	slices.Sort(order)
	return slices.Compact(order)
}

func (s *distributedStorage[K, V]) GetMulti(_ context.Context, keys []K) ([]*coalescingloader.CacheEntry[K, V], error) {
	indexes := make([]int, len(keys))
	for i, key := range keys {
		indexes[i] = s.bucketOf(key)
	}
	for _, index := range lockOrder(indexes) {
		s.buckets[index].mu.RLock()
		defer s.buckets[index].mu.RUnlock()
	}

	now := s.options.clock.Now()
	result := make([]*coalescingloader.CacheEntry[K, V], len(keys))
	for i, key := range keys {
		result[i] = s.buckets[indexes[i]].get(key, now)
	}
	return result, nil
}

func (s *distributedStorage[K, V]) SetMulti(_ context.Context, entries []*coalescingloader.CacheEntry[K, V]) error {
	indexes := make([]int, len(entries))
	used := make([]int, 0, len(entries))
	for i, entry := range entries {
		if entry != nil {
			indexes[i] = s.bucketOf(entry.Key)
			used = append(used, indexes[i])
		}
	}
	for _, index := range lockOrder(used) {
		s.buckets[index].mu.Lock()
		defer s.buckets[index].mu.Unlock()
	}

	now := s.options.clock.Now()
	for i, entry := range entries {
		if entry != nil {
			s.buckets[indexes[i]].set(entry, now)
		}
	}
	return nil
}
