package redisstorage

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/expiration"
	"github.com/karupanerura/coalescing-loader/storage"
)

// Storage is a bulk cache backed by Redis.
type Storage[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	client        redis.UniversalClient
	keyFunc       func(K) string
	prefix        string
	clock         coalescingloader.Clock
	policy        expiration.Policy
	logger        zerolog.Logger
	onDecodeError func(error)
}

var _ coalescingloader.BulkCache[uint8, struct{}] = (*Storage[uint8, struct{}])(nil)

// New creates a new Storage that uses the client.
func New[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](client redis.UniversalClient, opts ...Option[K, V]) *Storage[K, V] {
	s := &Storage[K, V]{
		client: client,
		keyFunc: func(key K) string {
			return fmt.Sprint(key)
		},
		clock:  coalescingloader.SystemClock,
		policy: expiration.DeadlinePolicy{},
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o.apply(s)
	}
	s.logger = s.logger.With().Str("component", "redisstorage").Logger()
	return s
}

// record is the stored representation of a cache entry.
type record[V any] struct {
	Value     V         `json:"v"`
	ExpiresAt time.Time `json:"e"`
}

func (s *Storage[K, V]) redisKey(key K) string {
	return s.prefix + s.keyFunc(key)
}

// GetMulti retrieves the entries with one MGET.
// Missing and expired keys are returned as nil entries.
// A record that cannot be decoded is also returned as a nil entry, so the caller loads it again and overwrites it.
func (s *Storage[K, V]) GetMulti(ctx context.Context, keys []K) ([]*coalescingloader.CacheEntry[K, V], error) {
	entries := make([]*coalescingloader.CacheEntry[K, V], len(keys))
	if len(keys) == 0 {
		return entries, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.redisKey(key)
	}
	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrGetMulti, err)
	}

	now := s.clock.Now()
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var r record[V]
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.decodeFailed(fmt.Errorf("decode %s: %w", redisKeys[i], err))
			continue
		}
		if s.policy.IsExpired(now, r.ExpiresAt) {
			continue
		}
		entries[i] = &coalescingloader.CacheEntry[K, V]{
			Entry:     coalescingloader.Entry[K, V]{Key: keys[i], Value: r.Value},
			ExpiresAt: r.ExpiresAt,
		}
	}
	return entries, nil
}

// decodeFailed reports a record that could not be decoded. The record is treated as a miss.
func (s *Storage[K, V]) decodeFailed(err error) {
	s.logger.Warn().Err(err).Msg("undecodable cache record")
	if s.onDecodeError != nil {
		s.onDecodeError(err)
	}
}

// SetMulti stores the entries with one pipeline of SET commands.
// Nil entries and entries that have already expired are skipped.
func (s *Storage[K, V]) SetMulti(ctx context.Context, entries []*coalescingloader.CacheEntry[K, V]) error {
	now := s.clock.Now()

	var merr *multierror.Error
	cmds, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, entry := range entries {
			if entry == nil {
				continue
			}

			var ttl time.Duration
			if !entry.ExpiresAt.IsZero() {
				ttl = entry.ExpiresAt.Sub(now)
				if ttl <= 0 {
					continue
				}
			}

			data, err := json.Marshal(record[V]{Value: entry.Value, ExpiresAt: entry.ExpiresAt})
			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("encode %s: %w", s.redisKey(entry.Key), err))
				continue
			}
			pipe.Set(ctx, s.redisKey(entry.Key), data, ttl)
		}
		return nil
	})
	if err != nil {
		for _, cmd := range cmds {
			if cmdErr := cmd.Err(); cmdErr != nil {
				merr = multierror.Append(merr, cmdErr)
			}
		}
		if merr == nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSetMulti, err)
	}
	return nil
}
