package batch

import (
	"time"

	"github.com/Vlad92msk/synapse-sub001/metric"
)

// Option represents a configuration option for the batch processor
type Option[T any] func(*Processor[T])

// WithBatchSize sets the segment size that triggers an immediate flush.
func WithBatchSize[T any](size int) Option[T] {
	return func(p *Processor[T]) {
		p.batchSize = size
	}
}

// WithBatchDelay sets the window after which an open segment flushes even
// if it never filled. A delay <= 0 disables timer flushes: segments then
// flush only by size or explicit Flush.
func WithBatchDelay[T any](delay time.Duration) Option[T] {
	return func(p *Processor[T]) {
		p.batchDelay = delay
	}
}

// WithShouldBatch sets the predicate deciding whether an item is held.
// Items rejected by the predicate execute immediately.
func WithShouldBatch[T any](predicate func(T) bool) Option[T] {
	return func(p *Processor[T]) {
		if predicate != nil {
			p.shouldBatch = predicate
		}
	}
}

// WithSegmentKey sets the function assigning items to segments.
func WithSegmentKey[T any](keyFn func(T) string) Option[T] {
	return func(p *Processor[T]) {
		if keyFn != nil {
			p.segmentKey = keyFn
		}
	}
}

// WithMerge sets the coalescing function applied to a segment's queue at
// flush time. The merge must only collapse or keep items, never invent
// new ones; the returned order is the execution order. A merge that
// collapses items should be paired with WithResultKey so collapsed items
// resolve against the right survivor.
func WithMerge[T any](merge func([]T) []T) Option[T] {
	return func(p *Processor[T]) {
		p.merge = merge
	}
}

// WithResultKey sets the function that relates collapsed items to their
// surviving sibling so both resolve with the same outcome. Typically the
// same key the merge collapses on.
func WithResultKey[T any](keyFn func(T) string) Option[T] {
	return func(p *Processor[T]) {
		if keyFn != nil {
			p.resultKey = keyFn
		}
	}
}

// WithMetrics enables Prometheus metrics export for processor statistics.
// If registry is nil, this option is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Processor[T]) {
		if registry != nil && prefix != "" {
			p.metricsReg = registry
			p.metricsPrefix = prefix
		}
	}
}
