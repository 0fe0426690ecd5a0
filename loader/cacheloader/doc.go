// Package cacheloader provides a loader that caches the values of another loader in a process-local store.
//
// Concurrent requests for the same uncached key share one inner load, and all misses of one
// LoadMany call are forwarded to the inner loader in one LoadMany call. A resolved value stays
// in the store until it is explicitly deleted, cleared or evicted by the store itself.
//
// The Loader can be configured with options:
//   - WithStore: Sets the store (default: storage/mapstore)
//   - WithCloner: Clones values handed out to callers
//   - WithBackgroundContextProvider: Sets the context of inner loads
//   - WithLogger / WithMetrics / WithName: Observability
package cacheloader
