package pureloader_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/karupanerura/coalescing-loader/loader/pureloader"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("fetch error")
	tests := []struct {
		name      string
		fetch     func(context.Context, []int) ([]string, error)
		key       int
		wantValue string
		wantErr   error
		wantCalls [][]int
	}{
		{
			name: "successful load",
			fetch: func(_ context.Context, keys []int) ([]string, error) {
				return []string{"testValue"}, nil
			},
			key:       1,
			wantValue: "testValue",
			wantCalls: [][]int{{1}},
		},
		{
			name: "error from fetch",
			fetch: func(_ context.Context, keys []int) ([]string, error) {
				return nil, fetchErr
			},
			key:       1,
			wantErr:   fetchErr,
			wantCalls: [][]int{{1}},
		},
		{
			name: "wrong number of values",
			fetch: func(_ context.Context, keys []int) ([]string, error) {
				return nil, nil
			},
			key:       1,
			wantErr:   pureloader.ErrWrongLength,
			wantCalls: [][]int{{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls [][]int
			loader := pureloader.New(func(ctx context.Context, keys []int) ([]string, error) {
				calls = append(calls, keys)
				return tt.fetch(ctx, keys)
			})

			got, err := loader.Load(t.Context(), tt.key)
			if tt.wantErr == nil && err != nil {
				t.Fatal(err)
			} else if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("unexpected error: %v (expected: %v)", err, tt.wantErr)
			}
			if got != tt.wantValue {
				t.Errorf("unexpected value: %q (expected: %q)", got, tt.wantValue)
			}
			if diff := cmp.Diff(tt.wantCalls, calls); diff != "" {
				t.Errorf("unexpected fetch calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadMany(t *testing.T) {
	t.Parallel()

	var calls [][]int
	loader := pureloader.New(func(_ context.Context, keys []int) ([]int, error) {
		calls = append(calls, keys)
		values := make([]int, len(keys))
		for i, key := range keys {
			values[i] = key * 10
		}
		return values, nil
	})

	got, err := loader.LoadMany(t.Context(), []int{1, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{10, 20, 10}, got); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}

	empty, err := loader.LoadMany(t.Context(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("unexpected values for no keys: %#v", empty)
	}

	if diff := cmp.Diff([][]int{{1, 2, 1}}, calls); diff != "" {
		t.Errorf("unexpected fetch calls (-want +got):\n%s", diff)
	}
}
