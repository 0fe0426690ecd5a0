package source_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	coalescingloader "github.com/karupanerura/coalescing-loader"
	"github.com/karupanerura/coalescing-loader/source"
)

func TestMapFunc(t *testing.T) {
	t.Parallel()

	fetch := source.MapFunc[uint8, string](func(_ context.Context, keys []uint8) (map[uint8]string, error) {
		m := map[uint8]string{}
		for _, key := range keys {
			if key%2 == 1 {
				m[key] = "value" + strconv.Itoa(int(key))
			}
		}
		return m, nil
	})

	for name, tc := range map[string]struct {
		keys []uint8
		want []string
	}{
		"Empty":      {keys: []uint8{}, want: []string{}},
		"AllFound":   {keys: []uint8{1, 3}, want: []string{"value1", "value3"}},
		"Missing":    {keys: []uint8{1, 2, 3}, want: []string{"value1", "", "value3"}},
		"Duplicated": {keys: []uint8{3, 1, 3}, want: []string{"value3", "value1", "value3"}},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := fetch.Fetch(t.Context(), tc.keys)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("unexpected values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEntriesFunc(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		entries []coalescingloader.Entry[uint8, string]
		keys    []uint8
		want    []string
	}{
		"InOrder": {
			entries: []coalescingloader.Entry[uint8, string]{{Key: 1, Value: "a"}, {Key: 2, Value: "b"}},
			keys:    []uint8{1, 2},
			want:    []string{"a", "b"},
		},
		"Shuffled": {
			entries: []coalescingloader.Entry[uint8, string]{{Key: 2, Value: "b"}, {Key: 1, Value: "a"}},
			keys:    []uint8{1, 2},
			want:    []string{"a", "b"},
		},
		"Omitted": {
			entries: []coalescingloader.Entry[uint8, string]{{Key: 3, Value: "c"}},
			keys:    []uint8{1, 3, 2},
			want:    []string{"", "c", ""},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fetch := source.EntriesFunc[uint8, string](func(context.Context, []uint8) ([]coalescingloader.Entry[uint8, string], error) {
				return tc.entries, nil
			})
			got, err := fetch.Fetch(t.Context(), tc.keys)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("unexpected values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSingleFunc(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("not found")
	var called []int
	fetch := source.SingleFunc[int, int](func(_ context.Context, key int) (int, error) {
		called = append(called, key)
		if key < 0 {
			return 0, wantErr
		}
		return key * 2, nil
	})

	got, err := fetch.Fetch(t.Context(), []int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 4, 6}, got); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}

	called = nil
	if _, err := fetch.Fetch(t.Context(), []int{1, -1, 3}); !errors.Is(err, wantErr) {
		t.Errorf("unexpected error: %v (expected: %v)", err, wantErr)
	}
	if diff := cmp.Diff([]int{1, -1}, called); diff != "" {
		t.Errorf("fetch must stop at the first error (-want +got):\n%s", diff)
	}
}

func TestLint(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("fetch error")
	fetch := source.Lint(func(_ context.Context, keys []int) ([]int, error) {
		switch keys[0] {
		case 0:
			return nil, fetchErr
		case 1:
			return keys, nil
		default:
			return keys[1:], nil
		}
	})

	t.Run("Valid", func(t *testing.T) {
		t.Parallel()

		got, err := fetch(t.Context(), []int{1, 2})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{1, 2}, got); diff != "" {
			t.Errorf("unexpected values (-want +got):\n%s", diff)
		}
	})

	t.Run("Error", func(t *testing.T) {
		t.Parallel()

		if _, err := fetch(t.Context(), []int{0}); !errors.Is(err, fetchErr) {
			t.Errorf("unexpected error: %v (expected: %v)", err, fetchErr)
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		t.Parallel()

		defer func() {
			if recover() == nil {
				t.Error("expected panic for wrong number of values")
			}
		}()
		_, _ = fetch(t.Context(), []int{2, 3})
	})
}
