// Package cache provides the cache-entry model of the synapse engine and a
// generic, thread-safe TTL cache built on it.
//
// The model side is pure data rules: Metadata carries creation, update and
// expiry timestamps (with ISO-8601 mirrors for serialization) plus a tag set
// for bulk invalidation; Key and APIKey derive deterministic cache keys.
// APIKey sorts parameter names so semantically identical parameter sets
// always produce the same key regardless of construction order.
//
// The TTLCache side applies those rules to stored entries: expiry is checked
// lazily on read (an expired entry is treated as absent, never an error) and
// optionally swept by a background cleaner when enabled via WithCleanup.
// Statistics are always collected; Prometheus export is opt-in through
// WithMetrics.
//
// Metadata invariants:
//   - expiresAt = createdAt + ttl when ttl > 0, otherwise the entry never
//     expires and the expiry rendering is the literal "never"
//   - an entry is expired iff now > expiresAt (strict: expiring exactly now
//     is not yet expired)
//   - Update is the only legal mutation and touches only updatedAt
package cache
