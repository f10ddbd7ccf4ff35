// Package batch provides a generic, thread-safe action-coalescing processor.
//
// A Processor holds batchable items in per-segment queues. A segment flushes
// when its size reaches the configured batch size or when the batch delay
// has elapsed since the first item of the currently open window, whichever
// occurs first. On flush the segment's queue is passed through the
// caller-supplied merge function, then each surviving item is forwarded to
// its executor in merged order. Items the merge collapsed away resolve with
// the outcome of the survivor sharing their result key.
//
// Items for which ShouldBatch returns false bypass the processor entirely
// and execute immediately. Distinct segments are fully independent: ordering
// is guaranteed within one segment only.
//
// A merge function that panics rejects the whole segment: every held item's
// Add call returns an ErrBatchMerge-classified error and nothing executes.
// Close cancels every pending flush timer and rejects held items with
// ErrBatchClosed, so a destroyed owner never receives a late flush.
package batch
