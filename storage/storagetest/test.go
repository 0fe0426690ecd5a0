// storagetest package provides generic test cases for bulk cache implementations.
package storagetest

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	coalescingloader "github.com/karupanerura/coalescing-loader"
)

// BenchmarkSetMulti benchmarks the SetMulti method of the cache.
func BenchmarkSetMulti[K coalescingloader.KeyConstraint, V coalescingloader.ValueConstraint](b *testing.B, cache coalescingloader.BulkCache[K, V], keys []K) {
	var zero V
	expiresAt := time.Now().Add(time.Hour)
	ctx := b.Context()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.SetMulti(ctx, []*coalescingloader.CacheEntry[K, V]{{
			Entry:     coalescingloader.Entry[K, V]{Key: keys[i%len(keys)], Value: zero},
			ExpiresAt: expiresAt,
		}})
	}
}

type TestClonerStruct struct {
	value int8
}

func (s *TestClonerStruct) Clone() *TestClonerStruct {
	return &TestClonerStruct{value: s.value}
}

// TestCloneStruct tests the cloning behavior of a cache that keeps values in process memory.
func TestCloneStruct(t *testing.T, provider func() (coalescingloader.BulkCache[uint8, *TestClonerStruct], func())) {
	t.Run("CloneStruct", func(t *testing.T) {
		t.Parallel()

		cache, release := provider()
		defer release()

		testClone(t, cache, &TestClonerStruct{value: 1}, cmp.AllowUnexported(TestClonerStruct{}))
	})
}

type TestDeepCopyerStruct struct {
	value int8
}

func (s *TestDeepCopyerStruct) DeepCopy() *TestDeepCopyerStruct {
	return &TestDeepCopyerStruct{value: s.value}
}

// TestDeepCopyStruct tests the deep copying behavior of a cache that keeps values in process memory.
func TestDeepCopyStruct(t *testing.T, provider func() (coalescingloader.BulkCache[uint8, *TestDeepCopyerStruct], func())) {
	t.Run("DeepCopyStruct", func(t *testing.T) {
		t.Parallel()

		cache, release := provider()
		defer release()

		testClone(t, cache, &TestDeepCopyerStruct{value: 1}, cmp.AllowUnexported(TestDeepCopyerStruct{}))
	})
}

func testClone[V comparable](t *testing.T, cache coalescingloader.BulkCache[uint8, V], value V, opts ...cmp.Option) {
	t.Helper()

	original := &coalescingloader.CacheEntry[uint8, V]{
		Entry:     coalescingloader.Entry[uint8, V]{Key: 1, Value: value},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, V]{original}); err != nil {
		t.Fatal(err)
	}

	before := original
	for range 2 {
		got, err := cache.GetMulti(t.Context(), []uint8{1})
		if err != nil {
			t.Fatal(err)
		}
		if got[0] == nil {
			t.Fatal("entry must exist")
		}
		if before == got[0] || before.Value == got[0].Value {
			t.Error("struct must be cloned, but got same that")
		}
		if df := cmp.Diff(before, got[0], opts...); df != "" {
			t.Errorf("struct diff=%s", df)
		}
		before = got[0]
	}
}

// TestConsistency tests that concurrent writes and reads of a cache observe the written entries.
func TestConsistency(t *testing.T, provider func() (coalescingloader.BulkCache[uint8, int8], func())) {
	t.Run("Consistency", func(t *testing.T) {
		t.Parallel()

		t.Run("SetAndGet", func(t *testing.T) {
			t.Parallel()

			cache, release := provider()
			defer release()

			expiresAt := time.Now().Add(time.Hour)
			patterns := []coalescingloader.Entry[uint8, int8]{
				{Key: 0, Value: 1},
				{Key: 1, Value: 2},
				{Key: 2, Value: 3},
				{Key: 3, Value: 4},
				{Key: 4, Value: 5},
				{Key: 251, Value: 124},
				{Key: 252, Value: 125},
				{Key: 253, Value: 126},
				{Key: 254, Value: 127},
				{Key: 255, Value: -128},
			}
			rand.Shuffle(len(patterns), func(i, j int) {
				patterns[i], patterns[j] = patterns[j], patterns[i]
			})
			var eg errgroup.Group
			for _, pattern := range patterns {
				eg.Go(func() error {
					entries, err := cache.GetMulti(t.Context(), []uint8{pattern.Key})
					if err != nil {
						return err
					} else if entries[0] != nil {
						return fmt.Errorf("unexpected exists value for key %d", pattern.Key)
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			for _, pattern := range patterns {
				eg.Go(func() error {
					return cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, int8]{{
						Entry:     pattern,
						ExpiresAt: expiresAt,
					}})
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			entries := make([]*coalescingloader.CacheEntry[uint8, int8], len(patterns))
			for i, pattern := range patterns {
				eg.Go(func() error {
					got, err := cache.GetMulti(t.Context(), []uint8{pattern.Key})
					if err != nil {
						return err
					}
					entries[i] = got[0]
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			for i, pattern := range patterns {
				if entries[i] == nil {
					t.Errorf("pattern[%d] key=%d entry not found", i, pattern.Key)
					continue
				}
				if df := cmp.Diff(pattern, entries[i].Entry); df != "" {
					t.Errorf("pattern[%d] key=%d entry diff=%s", i, pattern.Key, df)
				}
			}
		})

		t.Run("SetMultiAndGetMulti", func(t *testing.T) {
			t.Parallel()

			cache, release := provider()
			defer release()

			expiresAt := time.Now().Add(time.Hour)
			patterns := []struct {
				pairs []*coalescingloader.CacheEntry[uint8, int8]
			}{
				{
					[]*coalescingloader.CacheEntry[uint8, int8]{
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 0, Value: 1}, ExpiresAt: expiresAt},
					},
				},
				{
					[]*coalescingloader.CacheEntry[uint8, int8]{
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 1, Value: 2}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 2, Value: 3}, ExpiresAt: expiresAt},
					},
				},
				{
					[]*coalescingloader.CacheEntry[uint8, int8]{
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 4, Value: 5}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 5, Value: 6}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 6, Value: 7}, ExpiresAt: expiresAt},
					},
				},
				{
					[]*coalescingloader.CacheEntry[uint8, int8]{
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 251, Value: 124}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 252, Value: 125}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 253, Value: 126}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 254, Value: 127}, ExpiresAt: expiresAt},
						{Entry: coalescingloader.Entry[uint8, int8]{Key: 255, Value: -128}, ExpiresAt: expiresAt},
					},
				},
			}
			rand.Shuffle(len(patterns), func(i, j int) {
				patterns[i], patterns[j] = patterns[j], patterns[i]
			})

			var eg errgroup.Group
			for _, pattern := range patterns {
				eg.Go(func() error {
					return cache.SetMulti(t.Context(), pattern.pairs)
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			mu := sync.Mutex{}
			results := make([][]*coalescingloader.CacheEntry[uint8, int8], len(patterns))
			for i, pattern := range patterns {
				keys := make([]uint8, len(pattern.pairs))
				for j, pair := range pattern.pairs {
					keys[j] = pair.Key
				}
				eg.Go(func() error {
					r, err := cache.GetMulti(t.Context(), keys)
					if err != nil {
						return err
					}

					mu.Lock()
					defer mu.Unlock()
					results[i] = r
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			for i, pattern := range patterns {
				if df := cmp.Diff(pattern.pairs, results[i]); df != "" {
					t.Errorf("pattern[%d] entry diff=%s", i, df)
				}
			}
		})
	})
}

// TestPartialEntries tests nil entries in SetMulti and missing or duplicated keys in GetMulti.
func TestPartialEntries(t *testing.T, provider func() (coalescingloader.BulkCache[uint8, int8], func())) {
	t.Run("PartialEntries", func(t *testing.T) {
		t.Parallel()

		cache, release := provider()
		defer release()

		expiresAt := time.Now().Add(time.Hour)
		entry1 := &coalescingloader.CacheEntry[uint8, int8]{Entry: coalescingloader.Entry[uint8, int8]{Key: 1, Value: 1}, ExpiresAt: expiresAt}
		entry3 := &coalescingloader.CacheEntry[uint8, int8]{Entry: coalescingloader.Entry[uint8, int8]{Key: 3, Value: 3}}
		if err := cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, int8]{entry1, nil, entry3}); err != nil {
			t.Fatal(err)
		}
		if err := cache.SetMulti(t.Context(), nil); err != nil {
			t.Fatal(err)
		}

		entries, err := cache.GetMulti(t.Context(), []uint8{3, 2, 1, 3})
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff([]*coalescingloader.CacheEntry[uint8, int8]{entry3, nil, entry1, entry3}, entries); df != "" {
			t.Errorf("entries diff=%s", df)
		}

		entries, err = cache.GetMulti(t.Context(), []uint8{})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("unexpected entries for no keys: %v", entries)
		}
	})
}

type FixedClock struct {
	mu   sync.Mutex
	Time time.Time
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Time
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Time = t
}

// TestExpiration tests that entries expire at their expiration time and entries without it never expire.
func TestExpiration(t *testing.T, provider func(coalescingloader.Clock) (coalescingloader.BulkCache[uint8, int8], func())) {
	t.Run("Expiration", func(t *testing.T) {
		t.Parallel()

		base := time.Now()
		clock := &FixedClock{Time: base}
		cache, release := provider(clock)
		defer release()

		keys := []uint8{1, 2, 3}
		entries, err := cache.GetMulti(t.Context(), keys)
		if err != nil {
			t.Fatal(err)
		}
		for i, entry := range entries {
			if entry != nil {
				t.Errorf("entry[%d] should not exist", i)
			}
		}

		expiresAt := base.Add(time.Hour)
		testEntries := []*coalescingloader.CacheEntry[uint8, int8]{
			{Entry: coalescingloader.Entry[uint8, int8]{Key: 1, Value: 1}, ExpiresAt: expiresAt},
			{Entry: coalescingloader.Entry[uint8, int8]{Key: 2, Value: 2}, ExpiresAt: expiresAt},
			{Entry: coalescingloader.Entry[uint8, int8]{Key: 3, Value: 3}},
		}
		if err := cache.SetMulti(t.Context(), testEntries); err != nil {
			t.Fatal(err)
		}

		// Verify entries were stored
		entries, err = cache.GetMulti(t.Context(), keys)
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff(testEntries, entries); df != "" {
			t.Errorf("entries diff=%s", df)
		}

		// Just before expiration
		clock.Set(base.Add(time.Hour - time.Second))
		entries, err = cache.GetMulti(t.Context(), keys)
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff(testEntries, entries); df != "" {
			t.Errorf("entries diff=%s", df)
		}

		// At expiration
		clock.Set(base.Add(time.Hour))
		entries, err = cache.GetMulti(t.Context(), keys)
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff([]*coalescingloader.CacheEntry[uint8, int8]{nil, nil, testEntries[2]}, entries); df != "" {
			t.Errorf("entries diff=%s", df)
		}

		// After expiration
		clock.Set(base.Add(time.Hour + time.Second))
		entries, err = cache.GetMulti(t.Context(), keys)
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff([]*coalescingloader.CacheEntry[uint8, int8]{nil, nil, testEntries[2]}, entries); df != "" {
			t.Errorf("entries diff=%s", df)
		}
	})
}
