package memstorage

import (
	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/expiration"
	"github.com/karupanerura/coalescing-loader/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in the cache.
var DefaultBucketsSize = 256

// Option is the interface for the options of the in-memory cache storage.
type Option[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithKeyHash sets the key hash function to the storage.
func WithKeyHash[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](f func(K) int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.hashKey = func(key any) int {
			return f(key.(K))
		}
	})
}

// WithBucketsSize sets the number of buckets in the cache.
// The number of buckets must be a natural number.
func WithBucketsSize[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](bucketsSize int) Option[K, V] {
	if bucketsSize <= 0 {
		panic("bucketSize must be natural number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.bucketsSize = bucketsSize
	})
}

// WithClock sets the clock to the storage.
func WithClock[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](clock coalescingloader.Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = clock
	})
}

// WithCloner sets the value cloner to the storage.
// The default is coalescingloader.DefaultValueCloner.
func WithCloner[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](cloner coalescingloader.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cloner = cloner
	})
}

// WithExpirationPolicy sets the policy that decides whether a stored entry has expired.
// The default is expiration.DeadlinePolicy.
func WithExpirationPolicy[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](policy expiration.Policy) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.policy = policy
	})
}

type options[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	hashKey     func(any) int
	bucketsSize int
	clock       coalescingloader.Clock
	cloner      coalescingloader.ValueCloner[V]
	policy      expiration.Policy
}

func defaultOptions[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint]() options[K, V] {
	return options[K, V]{
		hashKey:     keyhash.GetOrCreateKeyHash[K](),
		bucketsSize: DefaultBucketsSize,
		clock:       coalescingloader.SystemClock,
		policy:      expiration.DeadlinePolicy{},
	}
}
