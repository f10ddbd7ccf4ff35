package batch

import "sync/atomic"

// Statistics tracks batch processor activity using atomic counters.
// All methods are safe for concurrent use.
type Statistics struct {
	added        atomic.Int64
	bypassed     atomic.Int64
	sizeFlushes  atomic.Int64
	delayFlushes atomic.Int64
	coalesced    atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Add records an item accepted into a segment.
func (s *Statistics) Add() {
	s.added.Add(1)
}

// Bypass records an item executed immediately without batching.
func (s *Statistics) Bypass() {
	s.bypassed.Add(1)
}

// Flush records a segment flush and its trigger.
func (s *Statistics) Flush(reason FlushReason) {
	switch reason {
	case FlushSize:
		s.sizeFlushes.Add(1)
	case FlushDelay:
		s.delayFlushes.Add(1)
	}
}

// Coalesce records items collapsed away by the merge function.
func (s *Statistics) Coalesce(n int64) {
	s.coalesced.Add(n)
}

// Added returns the number of items accepted into segments.
func (s *Statistics) Added() int64 {
	return s.added.Load()
}

// Bypassed returns the number of items that skipped batching.
func (s *Statistics) Bypassed() int64 {
	return s.bypassed.Load()
}

// SizeFlushes returns the number of flushes triggered by a full segment.
func (s *Statistics) SizeFlushes() int64 {
	return s.sizeFlushes.Load()
}

// DelayFlushes returns the number of flushes triggered by the batch window.
func (s *Statistics) DelayFlushes() int64 {
	return s.delayFlushes.Load()
}

// Flushes returns the total number of segment flushes.
func (s *Statistics) Flushes() int64 {
	return s.sizeFlushes.Load() + s.delayFlushes.Load()
}

// Coalesced returns the number of items collapsed away by merges.
func (s *Statistics) Coalesced() int64 {
	return s.coalesced.Load()
}
