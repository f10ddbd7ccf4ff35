package cache

import (
	"fmt"
	"sort"
	"strings"
)

// keySeparator joins key parts into deterministic, collision-resistant keys.
const keySeparator = "_"

// Key joins the given parts with "_" to form a deterministic cache key.
func Key(parts ...string) string {
	return strings.Join(parts, keySeparator)
}

// APIKey derives a cache key for an endpoint read. Without params the key is
// the endpoint itself. With params, parameter names are sorted
// lexicographically before concatenation so that semantically identical
// parameter sets always produce the same key regardless of construction
// order.
func APIKey(endpoint string, params map[string]any) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, 2*len(params)+1)
	parts = append(parts, endpoint)
	for _, name := range names {
		parts = append(parts, name, fmt.Sprintf("%v", params[name]))
	}
	return Key(parts...)
}
