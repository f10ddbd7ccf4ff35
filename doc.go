// Package synapse provides a single-process reactive state container:
// application state lives in one mutable store, mutations flow through an
// ordered action/middleware dispatch pipeline, derived values are exposed
// through memoized subscribable selectors, and repeated reads are cached
// with TTL and tag metadata.
//
// # Architecture
//
// The engine is assembled from five independent modules, leaves first:
//
//	┌─────────────────────────────────────┐
//	│        Singleton Registry           │  Keyed store instances,
//	│   (resolve, merge strategies)       │  config-conflict resolution
//	└─────────────────────────────────────┘
//	           ↓ constructs
//	┌─────────────────────────────────────┐
//	│            Store                    │  State, version counter,
//	│  (dispatch → middleware pipeline)   │  terminal reducer
//	└─────────────────────────────────────┘
//	           ↓ notifies
//	┌─────────────────────────────────────┐
//	│       Selector Module               │  Memoized derived values,
//	│  (recompute on result change)       │  ordered subscriber notify
//	└─────────────────────────────────────┘
//
// Middlewares wrap the terminal reducer in registration order (classic onion
// composition). The built-in batching middleware holds write actions in
// per-segment queues (pkg/batch) and coalesces them before forwarding; the
// built-in caching middleware answers reads from a TTL cache (pkg/cache)
// keyed by deterministic, order-independent cache keys.
//
// Synapse performs no network I/O and owns no persistence: durable backing
// is plugged in through the storage.Adapter interface, and all state lives
// in a single process.
package synapse
