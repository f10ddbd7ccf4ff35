package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/Vlad92msk/synapse-sub001/errors"
	"github.com/Vlad92msk/synapse-sub001/metric"
)

// Executor runs one item after its segment flushed (or immediately for
// bypassed items).
type Executor[T any] func(ctx context.Context, item T) (any, error)

// FlushReason identifies what triggered a segment flush.
type FlushReason string

const (
	// FlushSize means the segment reached the configured batch size.
	FlushSize FlushReason = "size"
	// FlushDelay means the batch delay elapsed since the window opened.
	FlushDelay FlushReason = "delay"
)

// DefaultSegment is the segment key used when no key can be derived from an item.
const DefaultSegment = "default"

// outcome is the resolved result of one held item.
type outcome struct {
	value any
	err   error
}

// pending is one held item awaiting its segment flush.
type pending[T any] struct {
	item   T
	exec   Executor[T]
	result chan outcome // buffered, written exactly once
}

// segment is a group of not-yet-forwarded items sharing a segment key.
type segment[T any] struct {
	key string

	mu      sync.Mutex
	items   []*pending[T]
	timer   *time.Timer
	flushed bool
}

// Processor batches and coalesces items before forwarding them to their
// executors. All methods are safe for concurrent use.
type Processor[T any] struct {
	batchSize  int
	batchDelay time.Duration

	shouldBatch func(T) bool
	segmentKey  func(T) string
	merge       func([]T) []T
	resultKey   func(T) string

	baseCtx  context.Context
	segments *xsync.MapOf[string, *segment[T]]
	stats    *Statistics

	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	metrics       *batchMetrics

	closeMu sync.Mutex
	closed  bool
}

// New creates a batch processor. The context bounds the lifetime of
// timer-triggered flush executions. Defaults: batch size 10, batch delay
// 100ms, every item batchable, a single shared segment, identity merge.
func New[T any](ctx context.Context, options ...Option[T]) (*Processor[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}

	p := &Processor[T]{
		batchSize:   10,
		batchDelay:  100 * time.Millisecond,
		shouldBatch: func(T) bool { return true },
		segmentKey:  func(T) string { return DefaultSegment },
		resultKey:   func(T) string { return DefaultSegment },
		baseCtx:     ctx,
		segments:    xsync.NewMapOf[string, *segment[T]](),
		stats:       NewStatistics(),
	}

	for _, option := range options {
		option(p)
	}

	if p.batchSize <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("batch size must be positive, got %d", p.batchSize),
			"batch", "New", "configuration validation")
	}

	if p.metricsReg != nil && p.metricsPrefix != "" {
		metrics, err := newBatchMetrics(p.metricsReg, p.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "batch", "New", "metrics registration")
		}
		p.metrics = metrics
	}

	return p, nil
}

// Add submits one item. Non-batchable items execute immediately through
// their executor; batchable items are held in their segment until it
// flushes, and Add blocks until the item's outcome is resolved or the
// caller's context is done.
func (p *Processor[T]) Add(ctx context.Context, item T, exec Executor[T]) (any, error) {
	if p.isClosed() {
		return nil, errors.WrapFatal(errors.ErrBatchClosed, "batch", "Add", "closed processor check")
	}

	if !p.shouldBatch(item) {
		p.stats.Bypass()
		if p.metrics != nil {
			p.metrics.recordBypass()
		}
		return exec(ctx, item)
	}

	pend := &pending[T]{
		item:   item,
		exec:   exec,
		result: make(chan outcome, 1),
	}

	key := p.segmentKey(item)
	for {
		seg, _ := p.segments.LoadOrCompute(key, func() *segment[T] {
			return &segment[T]{key: key}
		})

		seg.mu.Lock()
		if seg.flushed {
			// Segment retired between load and lock; take a fresh one.
			seg.mu.Unlock()
			continue
		}

		seg.items = append(seg.items, pend)
		if len(seg.items) == 1 && p.batchDelay > 0 {
			seg.timer = time.AfterFunc(p.batchDelay, func() {
				p.flush(seg, FlushDelay)
			})
		}
		full := len(seg.items) >= p.batchSize
		seg.mu.Unlock()

		p.stats.Add()
		if p.metrics != nil {
			p.metrics.recordAdd()
		}

		if full {
			p.flush(seg, FlushSize)
		}
		break
	}

	select {
	case out := <-pend.result:
		return out.value, out.err
	case <-ctx.Done():
		return nil, errors.WrapTransient(ctx.Err(), "batch", "Add", "flush wait")
	}
}

// Flush forces every open segment to flush immediately. Useful for tests
// and for callers that want read-your-write consistency at a known point.
func (p *Processor[T]) Flush() {
	p.segments.Range(func(_ string, seg *segment[T]) bool {
		p.flush(seg, FlushSize)
		return true
	})
}

// Close cancels all pending flush timers and rejects every held item with
// ErrBatchClosed. A closed processor rejects all further Add calls; nothing
// held at close time ever executes.
func (p *Processor[T]) Close() error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	p.closeMu.Unlock()

	rejection := errors.WrapFatal(errors.ErrBatchClosed, "batch", "Close", "pending item rejection")
	p.segments.Range(func(key string, seg *segment[T]) bool {
		seg.mu.Lock()
		if seg.flushed {
			seg.mu.Unlock()
			return true
		}
		seg.flushed = true
		if seg.timer != nil {
			seg.timer.Stop()
		}
		held := seg.items
		seg.items = nil
		p.segments.Delete(key)
		seg.mu.Unlock()

		for _, pend := range held {
			pend.result <- outcome{err: rejection}
		}
		return true
	})
	return nil
}

func (p *Processor[T]) isClosed() bool {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closed
}

// flush retires one segment and forwards its merged items. Exactly one
// caller wins when the timer and a size trigger race.
func (p *Processor[T]) flush(seg *segment[T], reason FlushReason) {
	seg.mu.Lock()
	if seg.flushed {
		seg.mu.Unlock()
		return
	}
	seg.flushed = true
	if seg.timer != nil {
		seg.timer.Stop()
	}
	held := seg.items
	seg.items = nil
	p.segments.Delete(seg.key)
	seg.mu.Unlock()

	if len(held) == 0 {
		return
	}

	p.stats.Flush(reason)
	if p.metrics != nil {
		p.metrics.recordFlush(reason)
	}

	p.run(held, reason)
}

// run merges one retired segment's queue and resolves every held item.
func (p *Processor[T]) run(held []*pending[T], _ FlushReason) {
	items := make([]T, len(held))
	for i, pend := range held {
		items[i] = pend.item
	}

	merged, err := p.safeMerge(items)
	if err != nil {
		// Merge failure rejects the whole segment.
		for _, pend := range held {
			pend.result <- outcome{err: err}
		}
		return
	}

	collapsed := len(items) - len(merged)
	if collapsed > 0 {
		p.stats.Coalesce(int64(collapsed))
		if p.metrics != nil {
			p.metrics.recordCoalesced(collapsed)
		}
	}

	// Group held items by result key so collapsed items can observe the
	// outcome of their surviving sibling.
	type keyState struct {
		pendings []*pending[T]
		outcomes []outcome
	}
	states := make(map[string]*keyState)
	for _, pend := range held {
		key := p.resultKey(pend.item)
		state, ok := states[key]
		if !ok {
			state = &keyState{}
			states[key] = state
		}
		state.pendings = append(state.pendings, pend)
	}

	// Execute survivors in merged order, each through the executor of the
	// positionally matching holder in its key group. When nothing was
	// collapsed this is exactly each item's own executor; a collapsed
	// group's single survivor runs through its first holder.
	for _, item := range merged {
		state, ok := states[p.resultKey(item)]
		if !ok {
			// Merge produced an item with no corresponding held entry;
			// nothing to resolve, nothing to execute it for.
			continue
		}
		j := len(state.outcomes)
		if j >= len(state.pendings) {
			j = len(state.pendings) - 1
		}
		value, execErr := state.pendings[j].exec(p.baseCtx, item)
		state.outcomes = append(state.outcomes, outcome{value: value, err: execErr})
	}

	// Resolve every held item. With no collapsing, outcomes line up 1:1;
	// collapsed items share the final survivor's outcome; items merged
	// away without any survivor resolve with a nil result.
	for _, state := range states {
		for i, pend := range state.pendings {
			if len(state.outcomes) == 0 {
				pend.result <- outcome{}
				continue
			}
			idx := i
			if idx >= len(state.outcomes) {
				idx = len(state.outcomes) - 1
			}
			pend.result <- state.outcomes[idx]
		}
	}
}

// safeMerge applies the merge function, converting a panic into a
// segment-rejecting classified error.
func (p *Processor[T]) safeMerge(items []T) (merged []T, err error) {
	if p.merge == nil {
		return items, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrBatchMerge, r),
				"batch", "safeMerge", "segment coalesce")
		}
	}()
	return p.merge(items), nil
}

// Stats returns the always-on processor statistics.
func (p *Processor[T]) Stats() *Statistics {
	return p.stats
}
