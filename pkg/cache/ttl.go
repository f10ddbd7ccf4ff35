package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vlad92msk/synapse-sub001/errors"
)

// TTLCache is a thread-safe cache whose entries carry full lifecycle
// Metadata. Expiry is checked lazily on read; the background sweeper is
// opt-in via WithCleanup. The zero ttl means entries never expire.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	items   map[string]*Entry[V]
	stats   *Statistics      // ALWAYS initialized
	metrics *cacheMetrics    // Optional, if metrics enabled
	evictFn EvictCallback[V] // Optional callback

	// Background cleanup coordination; nil channels when sweeping is off
	cleanupInterval time.Duration
	shutdown        chan struct{}
	done            chan struct{}
}

// NewTTLCache creates a new TTL cache. A positive ttl bounds every entry's
// lifetime at creation; ttl <= 0 creates unbounded entries. Returns an error
// if metrics registration fails when requested.
func NewTTLCache[V any](ctx context.Context, ttl time.Duration, options ...Option[V]) (*TTLCache[V], error) {
	opts := applyOptions(options...)

	// Stats are ALWAYS initialized - observability is not optional
	stats := NewStatistics()

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "NewTTLCache", "metrics registration")
		}
	}

	c := &TTLCache[V]{
		ttl:             ttl,
		items:           make(map[string]*Entry[V]),
		stats:           stats,
		metrics:         metrics,
		evictFn:         opts.evictCallback,
		cleanupInterval: opts.cleanupInterval,
	}

	if c.cleanupInterval > 0 {
		c.shutdown = make(chan struct{})
		c.done = make(chan struct{})
		go c.cleanup(ctx)
	}

	return c, nil
}

// Get retrieves a value by key, treating expired entries as absent.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	entry, ok := c.GetEntry(key)
	if !ok {
		var zero V
		return zero, false
	}
	return entry.Data, true
}

// GetEntry retrieves the full entry (data, metadata, params) by key.
// Expired entries are lazily removed and reported as absent.
func (c *TTLCache[V]) GetEntry(key string) (*Entry[V], bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return nil, false
	}

	if entry.Metadata.IsExpired() {
		c.mu.Lock()
		// Double-check it's still there and still expired
		if current, stillExists := c.items[key]; stillExists && current.Metadata.IsExpired() {
			delete(c.items, key)
			if c.evictFn != nil {
				defer c.evictFn(key, current.Data)
			}
			c.stats.Eviction()
			c.stats.UpdateSize(int64(len(c.items)))
			if c.metrics != nil {
				c.metrics.recordEviction()
				c.metrics.updateSize(len(c.items))
			}
		}
		c.mu.Unlock()

		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return nil, false
	}

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}

	return entry, true
}

// Set stores a value with the given key. A new key mints fresh metadata with
// the cache's default TTL and the given tags; overwriting an existing key
// replaces the data and touches only UpdatedAt; CreatedAt and ExpiresAt are
// immutable post-creation. Returns true if a new entry was created.
func (c *TTLCache[V]) Set(key string, value V, tags ...string) (bool, error) {
	return c.set(key, value, c.ttl, nil, tags...)
}

// SetWithParams stores a value together with the parameters it was derived
// from, using an explicit ttl for this entry (0 means never expires).
func (c *TTLCache[V]) SetWithParams(
	key string, value V, ttl time.Duration, params map[string]any, tags ...string,
) (bool, error) {
	return c.set(key, value, ttl, params, tags...)
}

func (c *TTLCache[V]) set(
	key string, value V, ttl time.Duration, params map[string]any, tags ...string,
) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	existing, exists := c.items[key]
	// Replacing an expired entry counts as creation
	created := !exists || existing.Metadata.IsExpired()
	if created {
		c.items[key] = &Entry[V]{
			Data:     value,
			Metadata: NewMetadata(ttl, tags...),
			Params:   params,
		}
	} else {
		existing.Data = value
		existing.Metadata.Update()
		if params != nil {
			existing.Params = params
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(size)
	}

	return created, nil
}

// Delete removes an entry by key.
func (c *TTLCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	entry, exists := c.items[key]
	if exists {
		delete(c.items, key)
		if c.evictFn != nil {
			defer c.evictFn(key, entry.Data)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if exists {
		c.stats.Delete()
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			c.metrics.recordDelete()
			c.metrics.updateSize(size)
		}
	}

	return exists, nil
}

// DeleteByTags removes every entry whose tag set intersects the query tags
// and returns the number of entries removed. Used for tag-based bulk
// invalidation.
func (c *TTLCache[V]) DeleteByTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}

	var evicted []*Entry[V]
	var evictedKeys []string

	c.mu.Lock()
	for key, entry := range c.items {
		if entry.Metadata.HasAnyTag(tags...) {
			delete(c.items, key)
			evicted = append(evicted, entry)
			evictedKeys = append(evictedKeys, key)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	for i, entry := range evicted {
		if c.evictFn != nil {
			c.evictFn(evictedKeys[i], entry.Data)
		}
		c.stats.Delete()
		if c.metrics != nil {
			c.metrics.recordDelete()
		}
	}
	if len(evicted) > 0 {
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			c.metrics.updateSize(size)
		}
	}

	return len(evicted)
}

// Clear removes all entries from the cache.
func (c *TTLCache[V]) Clear() error {
	c.mu.Lock()
	if c.evictFn != nil {
		for key, entry := range c.items {
			c.evictFn(key, entry.Data)
		}
	}
	c.items = make(map[string]*Entry[V])
	c.mu.Unlock()

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}

	return nil
}

// Size returns the current number of entries, including not-yet-swept
// expired ones.
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	size := len(c.items)
	c.mu.RUnlock()
	return size
}

// Keys returns the keys of all live (non-expired) entries.
func (c *TTLCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for key, entry := range c.items {
		if !entry.Metadata.IsExpired() {
			keys = append(keys, key)
		}
	}
	return keys
}

// Stats returns the always-on cache statistics.
func (c *TTLCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the background sweeper, if one was started.
func (c *TTLCache[V]) Close() error {
	if c.shutdown == nil {
		return nil
	}

	select {
	case <-c.shutdown:
		// Already shutting down
	default:
		close(c.shutdown)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cleanup goroutine to finish")
	}
}

// cleanup runs in a background goroutine and periodically removes expired entries.
func (c *TTLCache[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *TTLCache[V]) removeExpired() {
	var expiredKeys []string
	var expiredEntries []*Entry[V]

	c.mu.Lock()
	for key, entry := range c.items {
		if entry.Metadata.IsExpired() {
			expiredKeys = append(expiredKeys, key)
			expiredEntries = append(expiredEntries, entry)
			delete(c.items, key)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	// Eviction callbacks run outside the lock
	if c.evictFn != nil {
		for i, entry := range expiredEntries {
			c.evictFn(expiredKeys[i], entry.Data)
		}
	}

	if len(expiredEntries) > 0 {
		for range expiredEntries {
			c.stats.Eviction()
		}
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			for range expiredEntries {
				c.metrics.recordEviction()
			}
			c.metrics.updateSize(size)
		}
	}
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
