// Package memstorage provides an in-memory implementation of the coalescingloader.BulkCache interface.
//
// It is the process-local counterpart of an external cache such as storage/redisstorage, and can
// stand in for one in tests. The storage can be distributed across multiple buckets to reduce lock
// contention, and supports custom key hashing, clocks, value cloning and expiration policies.
package memstorage
