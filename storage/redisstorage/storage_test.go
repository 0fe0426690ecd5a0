package redisstorage_test

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/storage"
	"github.com/karupanerura/coalescing-loader/storage/redisstorage"
	"github.com/karupanerura/coalescing-loader/storage/storagetest"
)

func newClient(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func provider(opts ...redisstorage.Option[uint8, int8]) (coalescingloader.BulkCache[uint8, int8], func()) {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return redisstorage.New(client, opts...), func() {
		_ = client.Close()
		mr.Close()
	}
}

func BenchmarkSetMulti(b *testing.B) {
	_, client := newClient(b)
	keys := make([]uint8, 1024)
	for i := range keys {
		keys[i] = uint8(i % 256)
	}
	storagetest.BenchmarkSetMulti(b, redisstorage.New[uint8, int8](client), keys)
}

func TestConsistency(t *testing.T) {
	t.Parallel()
	storagetest.TestConsistency(t, func() (coalescingloader.BulkCache[uint8, int8], func()) {
		return provider()
	})
}

func TestPartialEntries(t *testing.T) {
	t.Parallel()
	storagetest.TestPartialEntries(t, func() (coalescingloader.BulkCache[uint8, int8], func()) {
		return provider()
	})
}

func TestExpiration(t *testing.T) {
	t.Parallel()
	storagetest.TestExpiration(t, func(clock coalescingloader.Clock) (coalescingloader.BulkCache[uint8, int8], func()) {
		return provider(redisstorage.WithClock[uint8, int8](clock))
	})
}

func TestStorage_TTL(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	clock := &storagetest.FixedClock{Time: time.Now()}
	cache := redisstorage.New(client, redisstorage.WithClock[uint8, int8](clock))

	err := cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, int8]{
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 1, Value: 1}, ExpiresAt: clock.Now().Add(90 * time.Second)},
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 2, Value: 2}},
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 3, Value: 3}, ExpiresAt: clock.Now().Add(-time.Second)},
		nil,
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := mr.TTL("1"); got != 90*time.Second {
		t.Errorf("unexpected TTL of key 1: %v", got)
	}
	if got := mr.TTL("2"); got != 0 {
		t.Errorf("key 2 must not have TTL: %v", got)
	}
	if mr.Exists("3") {
		t.Error("expired entry must not be stored")
	}

	mr.FastForward(2 * time.Minute)
	entries, err := cache.GetMulti(t.Context(), []uint8{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []*coalescingloader.CacheEntry[uint8, int8]{
		nil,
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 2, Value: 2}},
		nil,
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("unexpected entries (-want +got):\n%s", diff)
	}
}

func TestStorage_KeyFunc(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	cache := redisstorage.New(client,
		redisstorage.WithPrefix[uint8, int8]("user:"),
		redisstorage.WithKeyFunc[uint8, int8](func(key uint8) string {
			return strconv.Itoa(int(key) * 10)
		}),
	)

	err := cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, int8]{
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 1, Value: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"user:10"}, mr.Keys()); diff != "" {
		t.Errorf("unexpected keys (-want +got):\n%s", diff)
	}
}

func TestStorage_DecodeError(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)

	var buf bytes.Buffer
	var decodeErrs []error
	cache := redisstorage.New(client,
		redisstorage.WithLogger[uint8, int8](zerolog.New(&buf)),
		redisstorage.WithDecodeErrorHandler[uint8, int8](func(err error) {
			decodeErrs = append(decodeErrs, err)
		}),
	)
	if err := cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, int8]{
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 2, Value: 4}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := mr.Set("1", "not json"); err != nil {
		t.Fatal(err)
	}

	got, err := cache.GetMulti(t.Context(), []uint8{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []*coalescingloader.CacheEntry[uint8, int8]{
		nil,
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 2, Value: 4}},
		nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected entries (-want +got):\n%s", diff)
	}
	if len(decodeErrs) != 1 {
		t.Fatalf("expected 1 decode error, got: %v", decodeErrs)
	}
	if !strings.Contains(decodeErrs[0].Error(), "decode 1") {
		t.Errorf("unexpected decode error: %v", decodeErrs[0])
	}
	if !strings.Contains(buf.String(), "undecodable cache record") {
		t.Errorf("expected a warning log, got: %s", buf.String())
	}
}

func TestStorage_ServerDown(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	cache := redisstorage.New[uint8, int8](client)
	mr.Close()

	if _, err := cache.GetMulti(t.Context(), []uint8{1}); !errors.Is(err, storage.ErrGetMulti) {
		t.Errorf("unexpected GetMulti error: %v", err)
	}
	err := cache.SetMulti(t.Context(), []*coalescingloader.CacheEntry[uint8, int8]{
		{Entry: coalescingloader.Entry[uint8, int8]{Key: 1, Value: 1}},
	})
	if !errors.Is(err, storage.ErrSetMulti) {
		t.Errorf("unexpected SetMulti error: %v", err)
	}
}
