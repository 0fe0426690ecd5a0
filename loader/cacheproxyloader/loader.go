package cacheproxyloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/internal/panicutil"
	"github.com/karupanerura/coalescing-loader/loader/batchloader"
	"github.com/karupanerura/coalescing-loader/metrics"
)

type proxy[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	cache            coalescingloader.BulkCache[K, V]
	inner            coalescingloader.Loader[K, V]
	ttl              time.Duration
	clock            coalescingloader.Clock
	onWriteBackError func(error)
	context          func() context.Context
	name             string
	logger           zerolog.Logger
	metrics          *metrics.Collector
	batchOptions     []batchloader.Option[K, V]
}

// New creates a loader that serves keys from the cache and loads the misses with the inner loader.
// Keys are deduplicated per flush by default. Use WithBatchOptions to change the batching behavior.
func New[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](cache coalescingloader.BulkCache[K, V], inner coalescingloader.Loader[K, V], opts ...Option[K, V]) *batchloader.Loader[K, V] {
	p := &proxy[K, V]{
		cache:   cache,
		inner:   inner,
		clock:   coalescingloader.SystemClock,
		context: context.Background,
		name:    DefaultName,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o.apply(p)
	}

	batchOptions := []batchloader.Option[K, V]{
		batchloader.WithKeyDedup[K, V](),
		batchloader.WithName[K, V](p.name),
		batchloader.WithLogger[K, V](p.logger),
		batchloader.WithMetrics[K, V](p.metrics),
		batchloader.WithBackgroundContextProvider[K, V](p.context),
	}
	batchOptions = append(batchOptions, p.batchOptions...)

	p.logger = p.logger.With().Str("component", "cacheproxyloader").Str("loader", p.name).Logger()
	return batchloader.New(p.fetch, batchOptions...)
}

func (p *proxy[K, V]) fetch(ctx context.Context, keys []K) ([]V, error) {
	entries, err := p.cache.GetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}

	values := make([]V, len(keys))
	missKeys := make([]K, 0, len(keys))
	missSlots := make([]int, 0, len(keys))
	for i, key := range keys {
		if i < len(entries) && entries[i] != nil {
			values[i] = entries[i].Value
			continue
		}
		missKeys = append(missKeys, key)
		missSlots = append(missSlots, i)
	}
	p.metrics.ObserveCache(p.name, len(keys)-len(missKeys), len(missKeys))
	if len(missKeys) == 0 {
		return values, nil
	}

	loaded, err := p.inner.LoadMany(ctx, missKeys)
	if err != nil {
		return nil, err
	}
	if len(loaded) != len(missKeys) {
		return nil, fmt.Errorf("inner loader returned %d values for %d keys", len(loaded), len(missKeys))
	}

	newEntries := make([]*coalescingloader.CacheEntry[K, V], len(missKeys))
	for i, slot := range missSlots {
		values[slot] = loaded[i]
		newEntries[i] = &coalescingloader.CacheEntry[K, V]{
			Entry:     coalescingloader.Entry[K, V]{Key: missKeys[i], Value: loaded[i]},
			ExpiresAt: p.expiresAt(),
		}
	}
	p.writeBack(newEntries)
	return values, nil
}

func (p *proxy[K, V]) expiresAt() time.Time {
	if p.ttl <= 0 {
		return time.Time{}
	}
	return p.clock.Now().Add(p.ttl)
}

func (p *proxy[K, V]) writeBack(entries []*coalescingloader.CacheEntry[K, V]) {
	ctx := p.context()
	panicutil.Go(func() error {
		return p.cache.SetMulti(ctx, entries)
	}, coalescingloader.ErrGoexit, func(err error) {
		p.logger.Warn().Err(err).Int("entries", len(entries)).Msg("failed to write back loaded values")
		p.metrics.ObserveWriteBackError(p.name)
		if p.onWriteBackError != nil {
			p.onWriteBackError(err)
		}
	})
}
