// Package storage provides bulk cache adapters and utilities for the coalescing-loader library.
//
// This package contains adapters such as SilentErrorStorage, which wraps any BulkCache
// implementation to silently handle errors, FunctionsStorage, which allows building
// custom caches using function callbacks, and TieredStorage, which puts a fast cache
// in front of a slow one.
//
// This package also defines common error types for cache backends:
// ErrGetMulti and ErrSetMulti.
package storage
