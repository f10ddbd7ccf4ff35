package cache

// Entry pairs cached data with its lifecycle metadata and the parameters the
// data was derived from (e.g. the query params of a cached API response).
type Entry[V any] struct {
	Data     V              `json:"data"`
	Metadata Metadata       `json:"metadata"`
	Params   map[string]any `json:"params,omitempty"`
}

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry.
type EvictCallback[V any] func(key string, value V)
