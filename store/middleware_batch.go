package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/Vlad92msk/synapse-sub001/config"
	"github.com/Vlad92msk/synapse-sub001/errors"
	"github.com/Vlad92msk/synapse-sub001/metric"
	"github.com/Vlad92msk/synapse-sub001/pkg/batch"
)

// BatchMiddleware holds write actions in per-segment windows and coalesces
// repeated writes to the same key before forwarding, so a burst of sets
// reaches the terminal reducer as one write per key. Reads always bypass.
type BatchMiddleware struct {
	cfg      config.BatchConfig
	logger   *slog.Logger
	registry *metric.MetricsRegistry

	proc *batch.Processor[Action]
}

// BatchOption configures the batching middleware.
type BatchOption func(*BatchMiddleware)

// WithBatchMetrics enables Prometheus metrics for the wrapped processor.
func WithBatchMetrics(registry *metric.MetricsRegistry) BatchOption {
	return func(m *BatchMiddleware) {
		m.registry = registry
	}
}

// NewBatchMiddleware creates a batching middleware from the given config.
func NewBatchMiddleware(cfg config.BatchConfig, logger *slog.Logger, options ...BatchOption) *BatchMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &BatchMiddleware{cfg: cfg, logger: logger}
	for _, option := range options {
		option(m)
	}
	return m
}

// Name returns the middleware name.
func (m *BatchMiddleware) Name() string { return "batch" }

// Setup creates the wrapped processor. On failure the stage degrades to a
// pass-through.
func (m *BatchMiddleware) Setup(_ context.Context, _ API) error {
	options := []batch.Option[Action]{
		batch.WithBatchSize[Action](m.cfg.BatchSize),
		batch.WithBatchDelay[Action](m.cfg.BatchDelay),
		batch.WithShouldBatch[Action](m.shouldBatch),
		batch.WithSegmentKey[Action](segmentOf),
		batch.WithMerge(MergeActions),
		batch.WithResultKey[Action](resultKeyOf),
	}
	if m.registry != nil {
		options = append(options, batch.WithMetrics[Action](m.registry, "batch"))
	}

	// The processor outlives any single dispatch; its lifetime ends at
	// store teardown via Close.
	proc, err := batch.New(context.Background(), options...)
	if err != nil {
		return errors.WrapInvalid(err, "BatchMiddleware", "Setup", "processor construction")
	}
	m.proc = proc
	return nil
}

// Reducer routes batchable actions through the processor; everything else
// goes straight to the continuation.
func (m *BatchMiddleware) Reducer(_ API) func(Next) Next {
	return func(next Next) Next {
		return NextFunc(func(ctx context.Context, action Action) (any, error) {
			if m.proc == nil {
				return next.Dispatch(ctx, action)
			}
			return m.proc.Add(ctx, action, func(ctx context.Context, held Action) (any, error) {
				return next.Dispatch(ctx, held)
			})
		})
	}
}

// Flush forces every open segment to flush immediately.
func (m *BatchMiddleware) Flush() {
	if m.proc != nil {
		m.proc.Flush()
	}
}

// Stats returns the wrapped processor's statistics, or nil when the stage
// is degraded.
func (m *BatchMiddleware) Stats() *batch.Statistics {
	if m.proc == nil {
		return nil
	}
	return m.proc.Stats()
}

// Close cancels all pending flush timers and rejects held actions. Called
// by store teardown so a batch never fires into a destroyed store.
func (m *BatchMiddleware) Close() error {
	if m.proc == nil {
		return nil
	}
	return m.proc.Close()
}

// shouldBatch holds only writes, restricted to the configured segment
// allow-list when one is present.
func (m *BatchMiddleware) shouldBatch(action Action) bool {
	if action.IsRead() {
		return false
	}
	if len(m.cfg.Segments) == 0 {
		return true
	}
	return slices.Contains(m.cfg.Segments, segmentOf(action))
}

// segmentOf derives the batching segment: explicit metadata hint, then the
// action key, then the shared default segment.
func segmentOf(action Action) string {
	if hint, ok := action.Metadata[MetadataSegment].(string); ok && hint != "" {
		return hint
	}
	if action.Key != "" {
		return action.Key
	}
	return batch.DefaultSegment
}

// resultKeyOf relates collapsed writes to their surviving sibling.
func resultKeyOf(action Action) string {
	return action.Type + ":" + action.Key
}

// MergeActions coalesces one segment's queue: repeated sets for the same
// key collapse to the latest value at the position of the first set for
// that key; every other action type passes through uncollapsed.
func MergeActions(items []Action) []Action {
	merged := make([]Action, 0, len(items))
	setIndex := make(map[string]int)

	for _, item := range items {
		if item.Type != ActionSet {
			merged = append(merged, item)
			continue
		}
		if i, seen := setIndex[item.Key]; seen {
			merged[i] = item
			continue
		}
		setIndex[item.Key] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
