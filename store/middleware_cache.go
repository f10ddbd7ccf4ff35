package store

import (
	"context"
	"log/slog"

	"github.com/Vlad92msk/synapse-sub001/config"
	"github.com/Vlad92msk/synapse-sub001/errors"
	"github.com/Vlad92msk/synapse-sub001/metric"
	"github.com/Vlad92msk/synapse-sub001/pkg/cache"
	"github.com/Vlad92msk/synapse-sub001/storage"
)

// CacheMiddleware answers repeated reads from a TTL cache and writes
// results through a pluggable persistence adapter. Cache keys are derived
// from the action key plus any request parameters so semantically identical
// reads share one entry regardless of parameter order.
type CacheMiddleware struct {
	cfg      config.CacheConfig
	adapter  storage.Adapter
	logger   *slog.Logger
	registry *metric.MetricsRegistry

	cache *cache.TTLCache[any]
}

// CacheOption configures the caching middleware.
type CacheOption func(*CacheMiddleware)

// WithCacheMetrics enables Prometheus metrics for the wrapped cache.
func WithCacheMetrics(registry *metric.MetricsRegistry) CacheOption {
	return func(m *CacheMiddleware) {
		m.registry = registry
	}
}

// NewCacheMiddleware creates a caching middleware. The adapter is the
// durable backend hydrated from and written through; it may be nil for a
// purely in-memory cache.
func NewCacheMiddleware(cfg config.CacheConfig, adapter storage.Adapter, logger *slog.Logger, options ...CacheOption) *CacheMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &CacheMiddleware{cfg: cfg, adapter: adapter, logger: logger}
	for _, option := range options {
		option(m)
	}
	return m
}

// Name returns the middleware name.
func (m *CacheMiddleware) Name() string { return "cache" }

// Setup creates the TTL cache and hydrates it from the adapter. Hydration
// problems are warned and skipped; only cache construction failure degrades
// the whole stage to a pass-through.
func (m *CacheMiddleware) Setup(ctx context.Context, _ API) error {
	options := []cache.Option[any]{}
	if m.cfg.Cleanup.Enabled {
		options = append(options, cache.WithCleanup[any](m.cfg.Cleanup.Interval))
	}
	if m.registry != nil {
		options = append(options, cache.WithMetrics[any](m.registry, "cache"))
	}

	ttlCache, err := cache.NewTTLCache(ctx, m.cfg.TTL, options...)
	if err != nil {
		return errors.WrapInvalid(err, "CacheMiddleware", "Setup", "cache construction")
	}
	m.cache = ttlCache

	if m.adapter != nil {
		m.hydrate(ctx)
	}
	return nil
}

// hydrate seeds the cache from the persistence adapter, warning and
// continuing on any per-key failure.
func (m *CacheMiddleware) hydrate(ctx context.Context) {
	keys, err := m.adapter.Keys(ctx)
	if err != nil {
		m.logger.Warn("cache hydration skipped", "error", err)
		return
	}
	for _, key := range keys {
		value, ok, err := m.adapter.Get(ctx, key)
		if err != nil {
			m.logger.Warn("cache hydration read failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if _, err := m.cache.Set(key, value); err != nil {
			m.logger.Warn("cache hydration store failed", "key", key, "error", err)
		}
	}
	m.logger.Debug("cache hydrated", "keys", len(keys))
}

// Reducer serves reads from the cache when possible and keeps the cache
// and the adapter coherent with every write that passes through.
func (m *CacheMiddleware) Reducer(_ API) func(Next) Next {
	return func(next Next) Next {
		return NextFunc(func(ctx context.Context, action Action) (any, error) {
			if m.cache == nil {
				return next.Dispatch(ctx, action)
			}

			switch action.Type {
			case ActionGet:
				return m.handleGet(ctx, next, action)
			case ActionSet, ActionUpdate:
				return m.handleWrite(ctx, next, action)
			case ActionDelete:
				return m.handleDelete(ctx, next, action)
			case ActionClear:
				return m.handleClear(ctx, next, action)
			default:
				return next.Dispatch(ctx, action)
			}
		})
	}
}

func (m *CacheMiddleware) handleGet(ctx context.Context, next Next, action Action) (any, error) {
	key := m.cacheKey(action)

	if value, ok := m.cache.Get(key); ok {
		return value, nil
	}

	result, err := next.Dispatch(ctx, action)
	if err != nil {
		if m.cfg.InvalidateOnError {
			m.cache.Delete(key)
		}
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	if _, err := m.cache.SetWithParams(key, result, m.cfg.TTL, action.Params(), action.Tags(MetadataTags)...); err != nil {
		m.logger.Warn("cache store failed", "key", key, "error", err)
	}
	m.writeThrough(ctx, key, result)
	return result, nil
}

func (m *CacheMiddleware) handleWrite(ctx context.Context, next Next, action Action) (any, error) {
	key := m.cacheKey(action)

	result, err := next.Dispatch(ctx, action)
	if err != nil {
		if m.cfg.InvalidateOnError {
			m.cache.Delete(key)
		}
		return nil, err
	}

	// The mutated key's entry is stale now; drop it rather than guessing
	// the post-merge value.
	m.cache.Delete(key)
	m.invalidateTags(action)
	m.writeThrough(ctx, key, result)
	return result, nil
}

func (m *CacheMiddleware) handleDelete(ctx context.Context, next Next, action Action) (any, error) {
	key := m.cacheKey(action)

	result, err := next.Dispatch(ctx, action)
	if err != nil {
		return nil, err
	}

	m.cache.Delete(key)
	m.invalidateTags(action)
	if m.adapter != nil {
		if adapterErr := m.adapter.Delete(ctx, key); adapterErr != nil {
			m.logger.Warn("adapter delete failed", "key", key, "error", adapterErr)
		}
	}
	return result, nil
}

func (m *CacheMiddleware) handleClear(ctx context.Context, next Next, action Action) (any, error) {
	result, err := next.Dispatch(ctx, action)
	if err != nil {
		return nil, err
	}

	if clearErr := m.cache.Clear(); clearErr != nil {
		m.logger.Warn("cache clear failed", "error", clearErr)
	}
	if m.adapter != nil {
		if adapterErr := m.adapter.Clear(ctx); adapterErr != nil {
			m.logger.Warn("adapter clear failed", "error", adapterErr)
		}
	}
	return result, nil
}

// invalidateTags drops every cached entry carrying one of the action's
// invalidation tags.
func (m *CacheMiddleware) invalidateTags(action Action) {
	tags := action.Tags(MetadataInvalidateTags)
	if len(tags) == 0 {
		return
	}
	removed := m.cache.DeleteByTags(tags...)
	if removed > 0 {
		m.logger.Debug("cache entries invalidated by tag", "tags", tags, "removed", removed)
	}
}

// writeThrough mirrors a value into the persistence adapter, warning and
// continuing on failure.
func (m *CacheMiddleware) writeThrough(ctx context.Context, key string, value any) {
	if m.adapter == nil || value == nil {
		return
	}
	if err := m.adapter.Set(ctx, key, value); err != nil {
		m.logger.Warn("adapter write failed", "key", key, "error", err)
	}
}

// cacheKey derives a deterministic key from the action key and any request
// parameters, parameter order notwithstanding.
func (m *CacheMiddleware) cacheKey(action Action) string {
	return cache.APIKey(action.Key, action.Params())
}

// Stats returns the wrapped cache's statistics, or nil when the stage is
// degraded.
func (m *CacheMiddleware) Stats() *cache.Statistics {
	if m.cache == nil {
		return nil
	}
	return m.cache.Stats()
}

// Close stops the cache's background sweeper if one is running.
func (m *CacheMiddleware) Close() error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Close()
}
