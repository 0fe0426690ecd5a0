package batchloader_test

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/karupanerura/coalescing-loader/loader/batchloader"
)

type User struct {
	ID   int
	Name string
}

func ExampleNew() {
	// Create a fetch function that simulates one bulk database query
	fetch := func(ctx context.Context, ids []int) ([]User, error) {
		fmt.Printf("fetch %v\n", ids)
		users := make([]User, len(ids))
		for i, id := range ids {
			users[i] = User{ID: id, Name: "user" + strconv.Itoa(id)}
		}
		return users, nil
	}

	// Create a batch loader that deduplicates keys within a window of 10ms
	loader := batchloader.New(fetch,
		batchloader.WithWait[int, User](10*time.Millisecond),
		batchloader.WithKeyDedup[int, User](),
	)

	// Enqueue keys without waiting, so that they share one fetch
	thunks := []func(context.Context) (User, error){
		loader.LoadThunk(1),
		loader.LoadThunk(2),
		loader.LoadThunk(1),
	}
	for _, thunk := range thunks {
		user, err := thunk(context.Background())
		if err != nil {
			panic(err)
		}
		fmt.Printf("%d: %s\n", user.ID, user.Name)
	}

	// Output:
	// fetch [1 2]
	// 1: user1
	// 2: user2
	// 1: user1
}
