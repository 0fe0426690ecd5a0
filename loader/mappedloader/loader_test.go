package mappedloader_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/karupanerura/coalescing-loader/loader/batchloader"
	"github.com/karupanerura/coalescing-loader/loader/mappedloader"
	"github.com/karupanerura/coalescing-loader/loader/pureloader"
)

func identityFetch(calls *[][]int) func(context.Context, []int) ([]int, error) {
	var mu sync.Mutex
	return func(_ context.Context, keys []int) ([]int, error) {
		mu.Lock()
		*calls = append(*calls, append([]int(nil), keys...))
		mu.Unlock()
		return keys, nil
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var calls [][]int
	inner := batchloader.New(identityFetch(&calls), batchloader.WithKeyDedup[int, int]())
	loader := mappedloader.New(inner, func(v int, key int) string {
		return strconv.Itoa(key) + ":" + strconv.Itoa(v*10)
	})

	got, err := loader.Load(t.Context(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1:10" {
		t.Errorf("unexpected value: %q (expected: %q)", got, "1:10")
	}

	many, err := loader.LoadMany(t.Context(), []int{2, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2:20", "3:30", "2:20"}, many); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]int{{1}, {2, 3}}, calls); diff != "" {
		t.Errorf("unexpected fetch calls (-want +got):\n%s", diff)
	}
}

func TestNew_Stacked(t *testing.T) {
	t.Parallel()

	var calls [][]int
	inner := pureloader.New(identityFetch(&calls))
	doubled := mappedloader.New(inner, func(v int, _ int) int { return v * 2 })
	formatted := mappedloader.New(doubled, func(v int, key int) string {
		return strconv.Itoa(key) + "=" + strconv.Itoa(v)
	})

	got, err := formatted.LoadMany(t.Context(), []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1=2", "2=4"}, got); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	mapErr := errors.New("map error")
	tests := []struct {
		name    string
		keys    []int
		want    []string
		wantErr error
	}{
		{
			name: "all mapped",
			keys: []int{1, 2, 3},
			want: []string{"1", "2", "3"},
		},
		{
			name:    "mapping error",
			keys:    []int{1, -1, 3},
			wantErr: mapErr,
		},
		{
			name:    "every mapping fails",
			keys:    []int{-1, -2, -3},
			wantErr: mapErr,
		},
		{
			name: "no keys",
			keys: []int{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls [][]int
			inner := batchloader.New(identityFetch(&calls))
			loader := mappedloader.NewContext(inner, func(_ context.Context, v int, _ int) (string, error) {
				if v < 0 {
					return "", mapErr
				}
				return strconv.Itoa(v), nil
			})

			got, err := loader.LoadMany(t.Context(), tt.keys)
			if tt.wantErr == nil && err != nil {
				t.Fatal(err)
			} else if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("unexpected error: %v (expected: %v)", err, tt.wantErr)
			}
			if tt.wantErr != nil && got != nil {
				t.Errorf("expected no values on error, got: %v", got)
			}
			if tt.wantErr == nil {
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("unexpected values (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestNewContext_Load(t *testing.T) {
	t.Parallel()

	mapErr := errors.New("map error")
	var calls [][]int
	loader := mappedloader.NewContext(pureloader.New(identityFetch(&calls)), func(_ context.Context, v int, key int) (int, error) {
		if key == 0 {
			return 0, mapErr
		}
		return v + 1, nil
	})

	got, err := loader.Load(t.Context(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("unexpected value: %d (expected: 2)", got)
	}
	if _, err := loader.Load(t.Context(), 0); !errors.Is(err, mapErr) {
		t.Errorf("unexpected error: %v (expected: %v)", err, mapErr)
	}
}

func TestNewContext_Concurrent(t *testing.T) {
	t.Parallel()

	const numKeys = 3
	var started sync.WaitGroup
	started.Add(numKeys)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	var calls [][]int
	loader := mappedloader.NewContext(pureloader.New(identityFetch(&calls)), func(ctx context.Context, v int, _ int) (int, error) {
		started.Done()
		select {
		case <-allStarted:
			return v, nil
		case <-time.After(time.Second):
			return 0, errors.New("mappings did not run concurrently")
		}
	}, mappedloader.WithMaxGoroutines[int, int, int](numKeys))

	got, err := loader.LoadMany(t.Context(), []int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestLoad_InnerError(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("fetch error")
	inner := pureloader.New(func(context.Context, []int) ([]int, error) {
		return nil, fetchErr
	})

	mapped := 0
	loader := mappedloader.New(inner, func(v int, _ int) int {
		mapped++
		return v
	})
	if _, err := loader.Load(t.Context(), 1); !errors.Is(err, fetchErr) {
		t.Errorf("unexpected error: %v (expected: %v)", err, fetchErr)
	}
	if _, err := loader.LoadMany(t.Context(), []int{1}); !errors.Is(err, fetchErr) {
		t.Errorf("unexpected error: %v (expected: %v)", err, fetchErr)
	}
	if mapped != 0 {
		t.Errorf("mapping function called %d times after an inner error", mapped)
	}
}
