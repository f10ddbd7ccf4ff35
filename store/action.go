package store

// Action types handled by the terminal reducer. Unknown types flow through
// the middleware chain and resolve to a nil result unless a middleware
// services them.
const (
	ActionSet    = "set"
	ActionGet    = "get"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionClear  = "clear"
	ActionKeys   = "keys"
)

// Metadata fields recognized by the built-in middlewares.
const (
	// MetadataSegment carries the batching segment hint.
	MetadataSegment = "segment"
	// MetadataParams carries request parameters folded into the cache key.
	MetadataParams = "params"
	// MetadataTags carries cache tags attached to the action's result.
	MetadataTags = "tags"
	// MetadataInvalidateTags carries cache tags invalidated after the
	// action succeeds.
	MetadataInvalidateTags = "invalidate_tags"
)

// Action is an immutable request to mutate or read store state. Type selects
// behavior, Key identifies the state slice affected, Metadata carries
// cross-cutting hints for middlewares.
type Action struct {
	Type     string         `json:"type"`
	Payload  any            `json:"payload,omitempty"`
	Key      string         `json:"key,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ActionCreator builds an action of a fixed type from a key and payload.
type ActionCreator func(key string, payload any) Action

// IsRead reports whether the action only reads state. Reads bypass batching
// to preserve read-your-flushed-write semantics.
func (a Action) IsRead() bool {
	return a.Type == ActionGet || a.Type == ActionKeys
}

// Tags extracts the string values of the named metadata field.
func (a Action) Tags(field string) []string {
	raw, ok := a.Metadata[field]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

// Params extracts the request parameter map from the action metadata.
func (a Action) Params() map[string]any {
	params, _ := a.Metadata[MetadataParams].(map[string]any)
	return params
}

// Set creates an action that writes value at key.
func Set(key string, value any) Action {
	return Action{Type: ActionSet, Key: key, Payload: value}
}

// Get creates an action that reads the value at key.
func Get(key string) Action {
	return Action{Type: ActionGet, Key: key}
}

// Update creates an action that updates the existing value at key. Map
// payloads merge key-wise into an existing map value; anything else
// replaces it.
func Update(key string, value any) Action {
	return Action{Type: ActionUpdate, Key: key, Payload: value}
}

// Delete creates an action that removes the value at key.
func Delete(key string) Action {
	return Action{Type: ActionDelete, Key: key}
}

// Clear creates an action that removes all state.
func Clear() Action {
	return Action{Type: ActionClear}
}

// Keys creates an action that lists all state keys.
func Keys() Action {
	return Action{Type: ActionKeys}
}

// builtinCreators maps the terminal reducer's action types to their creators.
func builtinCreators() map[string]ActionCreator {
	return map[string]ActionCreator{
		ActionSet:    func(key string, payload any) Action { return Set(key, payload) },
		ActionGet:    func(key string, _ any) Action { return Get(key) },
		ActionUpdate: func(key string, payload any) Action { return Update(key, payload) },
		ActionDelete: func(key string, _ any) Action { return Delete(key) },
		ActionClear:  func(_ string, _ any) Action { return Clear() },
		ActionKeys:   func(_ string, _ any) Action { return Keys() },
	}
}
