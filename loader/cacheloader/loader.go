package cacheloader

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/internal/panicutil"
	"github.com/karupanerura/coalescing-loader/metrics"
	"github.com/karupanerura/coalescing-loader/storage/mapstore"
)

// Loader caches the values loaded by the inner loader.
type Loader[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint] struct {
	inner   coalescingloader.Loader[K, V]
	store   coalescingloader.Store[K, V]
	cloner  coalescingloader.ValueCloner[V]
	context func() context.Context
	name    string
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	inflight map[K]*call[V]
}

var _ coalescingloader.Loader[uint8, struct{}] = (*Loader[uint8, struct{}])(nil)

// New creates a new Loader that caches the values of the inner loader.
func New[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](inner coalescingloader.Loader[K, V], opts ...Option[K, V]) *Loader[K, V] {
	l := &Loader[K, V]{
		inner:    inner,
		cloner:   coalescingloader.NopValueCloner[V]{},
		context:  context.Background,
		name:     DefaultName,
		logger:   zerolog.Nop(),
		inflight: map[K]*call[V]{},
	}
	for _, o := range opts {
		o.apply(l)
	}
	l.logger = l.logger.With().Str("component", "cacheloader").Str("loader", l.name).Logger()
	if l.store == nil {
		l.store = mapstore.New[K, V]()
	}
	return l
}

// call is an inner load shared by every request for the same key.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func newCall[V any]() *call[V] {
	return &call[V]{done: make(chan struct{})}
}

func (c *call[V]) resolve(value V, err error) {
	c.value, c.err = value, err
	close(c.done)
}

func (c *call[V]) wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Load returns the value for the key.
// It waits for an in-flight load of the key, returns the stored value, or starts a new inner load.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	if c, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		l.metrics.ObserveCache(l.name, 1, 0)
		return l.await(ctx, c)
	}
	if v, ok := l.store.Get(key); ok {
		l.mu.Unlock()
		l.metrics.ObserveCache(l.name, 1, 0)
		return l.cloner.CloneValue(v), nil
	}
	c := newCall[V]()
	l.inflight[key] = c
	l.mu.Unlock()

	l.metrics.ObserveCache(l.name, 0, 1)
	go l.load(l.context(), []K{key}, []*call[V]{c}, func(ctx context.Context) ([]V, error) {
		v, err := l.inner.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		return []V{v}, nil
	})
	return l.await(ctx, c)
}

// LoadMany returns the values for the keys in the order of the keys.
// Every key is looked up as Load does, and all of the keys that are neither in flight nor stored
// are forwarded to the inner loader in one LoadMany call. Duplicated keys share one load.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	if len(keys) == 0 {
		return []V{}, nil
	}

	values := make([]V, len(keys))
	calls := make([]*call[V], len(keys))
	var missKeys []K
	var missCalls []*call[V]

	l.mu.Lock()
	for i, key := range keys {
		if c, ok := l.inflight[key]; ok {
			calls[i] = c
			continue
		}
		if v, ok := l.store.Get(key); ok {
			values[i] = l.cloner.CloneValue(v)
			continue
		}
		c := newCall[V]()
		l.inflight[key] = c
		calls[i] = c
		missKeys = append(missKeys, key)
		missCalls = append(missCalls, c)
	}
	l.mu.Unlock()

	l.metrics.ObserveCache(l.name, len(keys)-len(missKeys), len(missKeys))
	if len(missKeys) != 0 {
		go l.load(l.context(), missKeys, missCalls, func(ctx context.Context) ([]V, error) {
			return l.inner.LoadMany(ctx, missKeys)
		})
	}

	for i, c := range calls {
		if c == nil {
			continue
		}
		v, err := l.await(ctx, c)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (l *Loader[K, V]) await(ctx context.Context, c *call[V]) (V, error) {
	v, err := c.wait(ctx)
	if err != nil {
		return v, err
	}
	return l.cloner.CloneValue(v), nil
}

// load runs the inner load and settles the calls with its result.
func (l *Loader[K, V]) load(ctx context.Context, keys []K, calls []*call[V], loadFunc func(context.Context) ([]V, error)) {
	var values []V
	err := panicutil.Call(func() (err error) {
		values, err = loadFunc(ctx)
		return
	}, func() {
		l.settle(keys, calls, nil, coalescingloader.ErrGoexit)
	})
	if err == nil && len(values) != len(keys) {
		l.logger.Warn().Int("want", len(keys)).Int("got", len(values)).Msg("inner loader returned a wrong number of values")
		err = fmt.Errorf("inner loader returned %d values for %d keys", len(values), len(keys))
	} else if err != nil {
		l.logger.Debug().Err(err).Int("keys", len(keys)).Msg("inner load failed")
	}
	l.settle(keys, calls, values, err)
}

// settle clears the in-flight entries of the calls and resolves them.
// A value is stored only when its call is still the in-flight entry of the key,
// so a Set, Delete or Clear issued during the load takes precedence.
func (l *Loader[K, V]) settle(keys []K, calls []*call[V], values []V, err error) {
	l.mu.Lock()
	for i, key := range keys {
		if l.inflight[key] != calls[i] {
			continue
		}
		delete(l.inflight, key)
		if err == nil {
			l.store.Set(key, values[i])
		}
	}
	l.mu.Unlock()

	for i, c := range calls {
		if err != nil {
			var zero V
			c.resolve(zero, err)
		} else {
			c.resolve(values[i], nil)
		}
	}
}

// Get returns the in-flight or stored value for the key without starting a load.
// An in-flight value is waited for. The second return value reports whether the key was found.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	l.mu.Lock()
	c, ok := l.inflight[key]
	if !ok {
		v, ok := l.store.Get(key)
		l.mu.Unlock()
		if ok {
			v = l.cloner.CloneValue(v)
		}
		return v, ok, nil
	}
	l.mu.Unlock()

	v, err := l.await(ctx, c)
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Set stores the value for the key.
// An in-flight load of the key is detached, so its result does not overwrite the value.
func (l *Loader[K, V]) Set(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inflight, key)
	l.store.Set(key, value)
}

// Prime stores the value for the key only if the key is neither stored nor in flight.
// It reports whether the value was stored.
func (l *Loader[K, V]) Prime(key K, value V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.inflight[key]; ok {
		return false
	}
	if _, ok := l.store.Get(key); ok {
		return false
	}
	l.store.Set(key, value)
	return true
}

// Delete removes the key from the store and detaches its in-flight load.
// It reports whether the key was stored or in flight.
func (l *Loader[K, V]) Delete(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, inflight := l.inflight[key]
	delete(l.inflight, key)
	stored := l.store.Delete(key)
	return inflight || stored
}

// Clear removes every key from the store and detaches every in-flight load.
func (l *Loader[K, V]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.inflight)
	l.store.Clear()
}
