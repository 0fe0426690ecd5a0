package lrustore_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/karupanerura/coalescing-loader/storage/lrustore"
)

func TestNew_InvalidSize(t *testing.T) {
	t.Parallel()

	if _, err := lrustore.New[string, int](0, nil); err == nil {
		t.Error("expected an error for size 0")
	}
}

func TestStore_Evict(t *testing.T) {
	t.Parallel()

	var evicted []string
	store, err := lrustore.New(2, func(key string, _ int) {
		evicted = append(evicted, key)
	})
	if err != nil {
		t.Fatal(err)
	}

	store.Set("a", 1)
	store.Set("b", 2)
	if _, ok := store.Get("a"); !ok {
		t.Fatal("expected a to be stored")
	}
	store.Set("c", 3)

	if _, ok := store.Get("b"); ok {
		t.Error("expected the least recently used key to be evicted")
	}
	if v, ok := store.Get("a"); !ok || v != 1 {
		t.Errorf("unexpected value: %d, %v (expected: 1, true)", v, ok)
	}
	if diff := cmp.Diff([]string{"b"}, evicted); diff != "" {
		t.Errorf("unexpected evicted keys (-want +got):\n%s", diff)
	}

	if !store.Delete("a") {
		t.Error("expected Delete to report an existing key")
	}
	if store.Delete("a") {
		t.Error("expected Delete to report a missing key")
	}

	store.Clear()
	if n := store.Len(); n != 0 {
		t.Errorf("unexpected length: %d (expected: 0)", n)
	}
}
