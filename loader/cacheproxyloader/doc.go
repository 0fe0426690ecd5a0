// Package cacheproxyloader puts a bulk external cache in front of a loader.
//
// The proxy is a batchloader.Loader whose fetch function reads every key of a flush from the cache
// with one GetMulti, loads the misses with one LoadMany of the inner loader, and writes the loaded
// values back with one SetMulti on its own goroutine. Callers never wait for the write-back, and its
// failures are logged, counted and passed to the optional handler instead of being returned.
package cacheproxyloader
