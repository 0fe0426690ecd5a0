package batchloader

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/internal/panicutil"
	"github.com/karupanerura/coalescing-loader/metrics"
)

// Loader coalesces the loads issued within one scheduling window into one bulk fetch.
type Loader[K any, V any] struct {
	fetch               coalescingloader.FetchFunc[K, V]
	wait                time.Duration
	maxBatch            int
	chunkWait           time.Duration
	maxConcurrentChunks int
	dedupe              func([]K) ([]K, []int)
	context             func() context.Context
	name                string
	logger              zerolog.Logger
	metrics             *metrics.Collector

	mu    sync.Mutex
	queue []K
	batch *batch[V]
	holds int
	held  *batch[V]
}

var _ coalescingloader.Loader[uint8, struct{}] = (*Loader[uint8, struct{}])(nil)

// New creates a new Loader that fetches values with the given fetch function.
func New[K any, V any](fetch coalescingloader.FetchFunc[K, V], opts ...Option[K, V]) *Loader[K, V] {
	l := &Loader[K, V]{
		fetch:   fetch,
		context: context.Background,
		name:    DefaultName,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o.apply(l)
	}
	l.logger = l.logger.With().Str("component", "batchloader").Str("loader", l.name).Logger()
	return l
}

type batchState int

const (
	// batchScheduled accepts new keys until the window closes.
	batchScheduled batchState = iota
	// batchFetching has been swapped out of the loader and is being fetched.
	batchFetching
	// batchDone holds the result.
	batchDone
)

// batch is the result shared by every caller that joined one scheduling window.
type batch[V any] struct {
	state  batchState
	done   chan struct{}
	values []V
	err    error
}

func (b *batch[V]) wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load loads the value for the key.
// The key joins the batch of the current window, and Load waits for the batch to be fetched.
// If ctx is done first, Load returns the context error but the batch is still fetched for the other callers.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.LoadThunk(key)(ctx)
}

// LoadMany loads the values for the keys.
// The keys join the batch of the current window together, so the result has the same order as the keys.
// If the keys are empty, it returns an empty slice immediately without joining a batch.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	return l.LoadManyThunk(keys)(ctx)
}

// LoadThunk enqueues the key without waiting and returns a function that waits for its value.
// Thunks created before the window closes share one fetch.
func (l *Loader[K, V]) LoadThunk(key K) func(context.Context) (V, error) {
	b, offset := l.enqueue(key)
	return func(ctx context.Context) (V, error) {
		if err := b.wait(ctx); err != nil {
			var zero V
			return zero, err
		}
		return b.values[offset], nil
	}
}

// LoadManyThunk enqueues the keys without waiting and returns a function that waits for their values.
func (l *Loader[K, V]) LoadManyThunk(keys []K) func(context.Context) ([]V, error) {
	if len(keys) == 0 {
		return func(context.Context) ([]V, error) {
			return []V{}, nil
		}
	}

	b, offset := l.enqueue(keys...)
	return func(ctx context.Context) ([]V, error) {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}

		values := make([]V, len(keys))
		copy(values, b.values[offset:offset+len(keys)])
		return values, nil
	}
}

// enqueue appends the keys to the queue and returns the scheduled batch with the offset of the first key.
// The first enqueue of a window schedules the flush.
func (l *Loader[K, V]) enqueue(keys ...K) (*batch[V], int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offset := len(l.queue)
	l.queue = append(l.queue, keys...)
	if l.batch == nil {
		b := &batch[V]{state: batchScheduled, done: make(chan struct{})}
		l.batch = b
		time.AfterFunc(l.wait, func() {
			l.flush(b)
		})
	}
	return l.batch, offset
}

// Batch runs fn and keeps the current window open until fn returns.
// Every LoadThunk and LoadManyThunk called inside fn joins the same batch regardless of the wait,
// so the flush starts after the last running Batch returns.
// fn must not wait for a thunk created in it, because the batch is not fetched before fn returns.
func (l *Loader[K, V]) Batch(fn func()) {
	l.mu.Lock()
	l.holds++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.holds--
		b := l.held
		if l.holds == 0 {
			l.held = nil
		} else {
			b = nil
		}
		l.mu.Unlock()

		if b != nil {
			go l.flush(b)
		}
	}()
	fn()
}

// flush swaps the queue out and fetches the batch.
// A flush of a batch that is no longer scheduled is a no-op, and a flush during Batch is held until it returns.
func (l *Loader[K, V]) flush(b *batch[V]) {
	l.mu.Lock()
	if l.batch != b || b.state != batchScheduled {
		l.mu.Unlock()
		return
	}
	if l.holds > 0 {
		l.held = b
		l.mu.Unlock()
		return
	}
	keys := l.queue
	l.queue = nil
	l.batch = nil
	b.state = batchFetching
	l.mu.Unlock()

	var values []V
	err := panicutil.Call(func() (err error) {
		values, err = l.run(l.context(), keys)
		return
	}, func() {
		l.resolve(b, nil, coalescingloader.ErrGoexit)
	})
	l.resolve(b, values, err)
}

// resolve stores the result of a fetching batch and wakes up its waiters.
func (l *Loader[K, V]) resolve(b *batch[V], values []V, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b.state != batchFetching {
		return
	}
	b.values, b.err = values, err
	b.state = batchDone
	close(b.done)
}

// run deduplicates the keys, fetches them and expands the values back to one value per key.
func (l *Loader[K, V]) run(ctx context.Context, keys []K) ([]V, error) {
	if len(keys) == 0 {
		return []V{}, nil
	}

	unique, slots := keys, []int(nil)
	if l.dedupe != nil {
		unique, slots = l.dedupe(keys)
	}

	chunks := chunk(unique, l.maxBatch)
	l.metrics.ObserveFlush(l.name, len(keys), len(unique), len(chunks))
	l.logger.Debug().
		Int("keys", len(keys)).
		Int("unique", len(unique)).
		Int("chunks", len(chunks)).
		Msg("flushing batch")

	values, err := l.fetchChunks(ctx, chunks)
	if err != nil {
		l.metrics.ObserveFetchError(l.name)
		l.logger.Debug().Err(err).Int("keys", len(keys)).Msg("fetch failed")
		return nil, err
	}
	if slots == nil {
		return values, nil
	}

	results := make([]V, len(keys))
	for i, slot := range slots {
		results[i] = values[slot]
	}
	return results, nil
}

// fetchChunks fetches every chunk and concatenates the values in chunk order.
// Chunks are submitted one by one with the chunk wait between submissions and run concurrently.
func (l *Loader[K, V]) fetchChunks(ctx context.Context, chunks [][]K) ([]V, error) {
	if len(chunks) == 1 {
		values, err := l.fetch(ctx, chunks[0])
		if err != nil {
			return nil, err
		}
		return l.normalize(values, len(chunks[0])), nil
	}

	results := make([][]V, len(chunks))
	errs := make([]error, len(chunks))

	var eg errgroup.Group
	if l.maxConcurrentChunks > 0 {
		eg.SetLimit(l.maxConcurrentChunks)
	}
	for i, keys := range chunks {
		if i != 0 && l.chunkWait > 0 {
			if err := sleep(ctx, l.chunkWait); err != nil {
				errs[i] = err
				break
			}
		}
		eg.Go(func() error {
			errs[i] = panicutil.Call(func() (err error) {
				results[i], err = l.fetch(ctx, keys)
				return
			}, func() {
				errs[i] = coalescingloader.ErrGoexit
			})
			return nil
		})
	}
	_ = eg.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr != nil {
		if len(merr.Errors) == 1 {
			return nil, merr.Errors[0]
		}
		return nil, merr
	}

	values := make([]V, 0, len(chunks)*len(chunks[0]))
	for i, keys := range chunks {
		values = append(values, l.normalize(results[i], len(keys))...)
	}
	return values, nil
}

// normalize pads or truncates the values of a malformed fetch result to n values.
func (l *Loader[K, V]) normalize(values []V, n int) []V {
	if len(values) == n {
		return values
	}

	l.logger.Warn().Int("want", n).Int("got", len(values)).Msg("fetch function returned a wrong number of values")
	fixed := make([]V, n)
	copy(fixed, values)
	return fixed
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
