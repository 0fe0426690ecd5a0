package redisstorage

import (
	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/expiration"
)

// Option is the interface for the options of the Storage.
type Option[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] interface {
	apply(*Storage[K, V])
}

type optionFunc[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] func(*Storage[K, V])

func (f optionFunc[K, V]) apply(s *Storage[K, V]) {
	f(s)
}

// WithKeyFunc sets the function that converts a key to a Redis key.
// The default is fmt.Sprint.
func WithKeyFunc[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](f func(K) string) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.keyFunc = f
	})
}

// WithPrefix sets the prefix of every Redis key.
func WithPrefix[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](prefix string) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.prefix = prefix
	})
}

// WithClock sets the clock used to compute TTLs and to check expiration on read.
func WithClock[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](clock coalescingloader.Clock) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.clock = clock
	})
}

// WithExpirationPolicy sets the policy checked on read in addition to the Redis TTL.
// The default is expiration.DeadlinePolicy.
func WithExpirationPolicy[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](policy expiration.Policy) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.policy = policy
	})
}

// WithLogger sets the logger. Undecodable records are logged at warn level.
func WithLogger[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](logger zerolog.Logger) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.logger = logger
	})
}

// WithDecodeErrorHandler sets the function called with the error of every record that cannot be decoded.
func WithDecodeErrorHandler[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](f func(error)) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.onDecodeError = f
	})
}
