package registry

import (
	"encoding/json"
	"fmt"

	"github.com/Vlad92msk/synapse-sub001/config"
)

// configsEqual compares two configurations structurally over their
// serializable fields. Both sides round-trip through JSON, so anything a
// config cannot serialize (nothing today, middleware wiring lives outside
// the config) can never cause a false mismatch.
func configsEqual(a, b *config.Config) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}

// diffConfigs returns a field-enumerated structural diff of two configs,
// one "path: first != second" line per differing field. Enumeration is
// explicit so the comparison stays total and predictable.
func diffConfigs(a, b *config.Config) []string {
	var diffs []string
	add := func(path string, first, second any) {
		diffs = append(diffs, fmt.Sprintf("%s: %v != %v", path, first, second))
	}

	if a.Name != b.Name {
		add("name", a.Name, b.Name)
	}
	if a.StorageType != b.StorageType {
		add("storage_type", a.StorageType, b.StorageType)
	}
	if aState, bState := mustJSON(a.InitialState), mustJSON(b.InitialState); aState != bState {
		add("initial_state", aState, bState)
	}

	if a.Batch.Enabled != b.Batch.Enabled {
		add("batch.enabled", a.Batch.Enabled, b.Batch.Enabled)
	}
	if a.Batch.BatchSize != b.Batch.BatchSize {
		add("batch.batch_size", a.Batch.BatchSize, b.Batch.BatchSize)
	}
	if a.Batch.BatchDelay != b.Batch.BatchDelay {
		add("batch.batch_delay", a.Batch.BatchDelay, b.Batch.BatchDelay)
	}
	if aSegs, bSegs := mustJSON(a.Batch.Segments), mustJSON(b.Batch.Segments); aSegs != bSegs {
		add("batch.segments", aSegs, bSegs)
	}

	if a.Cache.Enabled != b.Cache.Enabled {
		add("cache.enabled", a.Cache.Enabled, b.Cache.Enabled)
	}
	if a.Cache.TTL != b.Cache.TTL {
		add("cache.ttl", a.Cache.TTL, b.Cache.TTL)
	}
	if a.Cache.Cleanup.Enabled != b.Cache.Cleanup.Enabled {
		add("cache.cleanup.enabled", a.Cache.Cleanup.Enabled, b.Cache.Cleanup.Enabled)
	}
	if a.Cache.Cleanup.Interval != b.Cache.Cleanup.Interval {
		add("cache.cleanup.interval", a.Cache.Cleanup.Interval, b.Cache.Cleanup.Interval)
	}
	if a.Cache.InvalidateOnError != b.Cache.InvalidateOnError {
		add("cache.invalidate_on_error", a.Cache.InvalidateOnError, b.Cache.InvalidateOnError)
	}

	if a.Singleton.Enabled != b.Singleton.Enabled {
		add("singleton.enabled", a.Singleton.Enabled, b.Singleton.Enabled)
	}
	if a.Singleton.MergeStrategy != b.Singleton.MergeStrategy {
		add("singleton.merge_strategy", a.Singleton.MergeStrategy, b.Singleton.MergeStrategy)
	}
	if a.Singleton.WarnOnConflict != b.Singleton.WarnOnConflict {
		add("singleton.warn_on_conflict", a.Singleton.WarnOnConflict, b.Singleton.WarnOnConflict)
	}
	if a.Singleton.Key != b.Singleton.Key {
		add("singleton.key", a.Singleton.Key, b.Singleton.Key)
	}

	return diffs
}

func mustJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
