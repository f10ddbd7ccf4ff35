// Package storage provides pluggable persistence backends for store state.
package storage

import "context"

// Adapter is the pluggable persistence backend behind a store.
//
// Each store instance owns one Adapter configured for its storage type
// (memory, file, or an external backend provided by the embedding
// application). The caching middleware writes through the Adapter so state
// survives store re-initialization when the backend is durable.
//
// The Adapter interface uses a simple key-value pattern where:
//   - Keys are strings built with the cache key helpers
//   - Values are arbitrary Go values owned by the caller after Get
//   - Operations are context-aware for cancellation and timeouts
//
// Thread Safety:
// All Adapter implementations must be safe for concurrent use from multiple
// goroutines.
type Adapter interface {
	// Get retrieves the value for the specified key. The second return
	// value reports whether the key was present; absence is not an error.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores a value at the specified key, overwriting any existing
	// value.
	Set(ctx context.Context, key string, value any) error

	// Delete removes the value at the specified key. Deleting an absent
	// key is a no-op, not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key the adapter holds.
	Clear(ctx context.Context) error

	// Keys returns all keys currently held, in no particular order.
	Keys(ctx context.Context) ([]string, error)
}
