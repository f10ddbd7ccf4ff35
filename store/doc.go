// Package store implements the reactive state container at the center of
// the engine.
//
// # Overview
//
// A Store owns one mutable state map. Every mutation or read is expressed
// as an Action and dispatched through an ordered middleware pipeline that
// ends in the terminal reducer. Middlewares compose as an onion: stage 0
// runs first on the way in and last on the way out, and any stage may
// transform the action, transform the result, short-circuit, or dispatch
// further actions that re-enter the pipeline from the head.
//
// Three built-in middlewares cover the common cross-cutting concerns:
//
//   - LoggingMiddleware: structured entry/exit logging with durations.
//   - BatchMiddleware: per-segment debounced coalescing of writes, so a
//     burst of sets reaches the reducer as one write per key.
//   - CacheMiddleware: TTL-cached reads keyed by action key plus request
//     parameters, written through a pluggable persistence adapter.
//
// Derived values are read through the selector package, which subscribes
// to the store's change notifications via Snapshot and Watch. The same
// snapshot reference is returned until the next mutation, so selectors can
// use reference equality to skip recomputation.
//
// # Lifecycle
//
// New constructs a store from a validated config; Initialize runs each
// middleware's Setup (failures degrade the stage with a warning, they
// never abort) and composes the pipeline; Destroy tears middlewares down
// in reverse order, cancelling pending batch timers so no batch ever
// fires into a dead store. Dispatch after Destroy fails with a fatal
// classified error.
//
// # Concurrency
//
// Dispatches are serialized at the terminal reducer by a single mutex;
// concurrent dispatches interleave only at middleware suspension points
// (a batching hold, an adapter round-trip), never mid-mutation. Watcher
// notification order is registration order.
package store
