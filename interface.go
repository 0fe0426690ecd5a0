package coalescingloader

import (
	"context"
	"time"
)

// KeyConstraint is an interface for key constraints of the caching layers.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// Loader is the capability shared by every loader in this module.
// The batching loader, the mapped loader, the cache loader and the cache proxy all implement it,
// so they can wrap each other in any order.
type Loader[K any, V any] interface {
	// Load returns the value for the key.
	Load(context.Context, K) (V, error)

	// LoadMany returns the values for the keys.
	// The result has the same length and order as the input keys, including duplicated keys.
	LoadMany(context.Context, []K) ([]V, error)
}

// FetchFunc fetches values for the keys in one bulk call.
// It must return values with the same length and order as the input keys.
type FetchFunc[K any, V any] func(context.Context, []K) ([]V, error)

// Entry is a key-value pair.
type Entry[K KeyConstraint, V ValueConstraint] struct {
	// Key is the key of the entry.
	Key K

	// Value is the value associated with the key.
	Value V
}

// CacheEntry is a key-value pair with an expiration time.
type CacheEntry[K KeyConstraint, V ValueConstraint] struct {
	Entry[K, V]

	// ExpiresAt is the expiration time of the entry.
	// The zero value means the entry never expires.
	ExpiresAt time.Time
}

// Store is a process-local key-value store used by the cache loader.
// Implementations must be thread-safe.
type Store[K KeyConstraint, V ValueConstraint] interface {
	// Get returns the value for the key and whether it exists.
	Get(K) (V, bool)

	// Set stores the value for the key, overwriting any existing value.
	Set(K, V)

	// Delete removes the key and reports whether it existed.
	Delete(K) bool

	// Clear removes all keys.
	Clear()
}

// BulkCache is an external cache that is accessed with bulk operations.
// Implementations must be thread-safe.
type BulkCache[K KeyConstraint, V ValueConstraint] interface {
	// GetMulti retrieves multiple entries by keys.
	// The order of the returned entries matches the order of the input keys.
	// If a key is not found or expired, it returns nil for that key.
	GetMulti(context.Context, []K) ([]*CacheEntry[K, V], error)

	// SetMulti stores multiple entries.
	// Nil entries must be ignored.
	SetMulti(context.Context, []*CacheEntry[K, V]) error
}
