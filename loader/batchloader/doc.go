// Package batchloader provides a loader that coalesces individual loads into bulk fetches.
//
// Every Load and LoadMany call appends its keys to a pending queue and joins the batch that is
// scheduled for the current window. When the window closes, the queue is swapped out and the keys
// are sent to the fetch function in one call, or in several chunks when the queue exceeds the
// configured maximum batch size. The results are fanned back out to every caller in enqueue order.
//
// With the default wait of zero the window closes as soon as the timer goroutine runs, which may be
// in the middle of a burst of LoadThunk calls. Wrap the burst in Batch to make it share one fetch
// regardless of the wait.
//
// The Loader can be configured with options:
//   - WithWait: Sets the length of the scheduling window
//   - WithMaxBatch: Splits oversized batches into chunks
//   - WithChunkWait: Throttles the submission of consecutive chunks
//   - WithKeyIdentity / WithKeyDedup: Deduplicates keys within a batch
//   - WithLogger / WithMetrics / WithName: Observability
package batchloader
