package cache

import (
	"time"
)

// NeverExpires is the human-readable rendering of an unbounded expiry.
const NeverExpires = "never"

// Metadata holds the lifecycle timestamps and tag set of a cache entry.
// CreatedAt and ExpiresAt are immutable after creation; Update is the only
// legal mutation path and touches only UpdatedAt.
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// ExpiresAt is the zero time for entries that never expire.
	ExpiresAt time.Time `json:"expires_at"`
	Tags      []string  `json:"tags,omitempty"`

	// ISO-8601 mirrors of the timestamps above, for human-readable
	// serialization. ExpiresAtDateTime is "never" when unbounded.
	CreatedAtDateTime string `json:"created_at_datetime"`
	UpdatedAtDateTime string `json:"updated_at_datetime"`
	ExpiresAtDateTime string `json:"expires_at_datetime"`
}

// NewMetadata creates entry metadata stamped at now. A positive ttl sets
// ExpiresAt to createdAt+ttl; ttl <= 0 means the entry never expires.
func NewMetadata(ttl time.Duration, tags ...string) Metadata {
	now := time.Now()
	m := Metadata{
		CreatedAt:         now,
		UpdatedAt:         now,
		Tags:              append([]string(nil), tags...),
		CreatedAtDateTime: now.Format(time.RFC3339Nano),
		UpdatedAtDateTime: now.Format(time.RFC3339Nano),
		ExpiresAtDateTime: NeverExpires,
	}
	if ttl > 0 {
		m.ExpiresAt = now.Add(ttl)
		m.ExpiresAtDateTime = m.ExpiresAt.Format(time.RFC3339Nano)
	}
	return m
}

// IsExpired reports whether the entry has passed its expiry. The comparison
// is strict: an entry expiring at exactly now is not yet expired, and an
// unbounded entry never expires.
func (m *Metadata) IsExpired() bool {
	if m.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(m.ExpiresAt)
}

// Update touches UpdatedAt (and its ISO mirror). CreatedAt and ExpiresAt
// stay untouched.
func (m *Metadata) Update() {
	now := time.Now()
	m.UpdatedAt = now
	m.UpdatedAtDateTime = now.Format(time.RFC3339Nano)
}

// HasAnyTag reports whether the entry's tag set intersects the query tags.
func (m *Metadata) HasAnyTag(tags ...string) bool {
	for _, query := range tags {
		for _, tag := range m.Tags {
			if tag == query {
				return true
			}
		}
	}
	return false
}
