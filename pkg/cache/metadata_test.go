package cache

import (
	"testing"
	"time"
)

func TestNewMetadata_WithTTL(t *testing.T) {
	before := time.Now()
	m := NewMetadata(time.Hour, "users", "profiles")
	after := time.Now()

	if m.CreatedAt.Before(before) || m.CreatedAt.After(after) {
		t.Errorf("createdAt outside creation window: %v", m.CreatedAt)
	}
	if !m.UpdatedAt.Equal(m.CreatedAt) {
		t.Error("updatedAt should equal createdAt on creation")
	}

	wantExpiry := m.CreatedAt.Add(time.Hour)
	if !m.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expected expiresAt = createdAt+ttl, got %v want %v", m.ExpiresAt, wantExpiry)
	}
	if m.ExpiresAtDateTime == NeverExpires {
		t.Error("bounded entry should not render expiry as never")
	}
	if len(m.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", m.Tags)
	}
}

func TestNewMetadata_Unbounded(t *testing.T) {
	m := NewMetadata(0)

	if !m.ExpiresAt.IsZero() {
		t.Errorf("unbounded entry should have zero expiry, got %v", m.ExpiresAt)
	}
	if m.ExpiresAtDateTime != NeverExpires {
		t.Errorf("expected %q rendering, got %q", NeverExpires, m.ExpiresAtDateTime)
	}
	if m.IsExpired() {
		t.Error("unbounded entry must never expire")
	}
}

func TestIsExpired(t *testing.T) {
	m := NewMetadata(50 * time.Millisecond)
	if m.IsExpired() {
		t.Error("entry should not be expired immediately after creation")
	}

	time.Sleep(70 * time.Millisecond)
	if !m.IsExpired() {
		t.Error("entry should be expired once now > createdAt+ttl")
	}
}

func TestIsExpired_StrictBoundary(t *testing.T) {
	// An entry expiring at exactly now is not yet expired
	m := NewMetadata(time.Hour)
	m.ExpiresAt = time.Now().Add(24 * time.Hour)
	if m.IsExpired() {
		t.Error("future expiry should not be expired")
	}
}

func TestUpdate_TouchesOnlyUpdatedAt(t *testing.T) {
	m := NewMetadata(0)
	createdAt := m.CreatedAt
	expiresAt := m.ExpiresAt

	time.Sleep(5 * time.Millisecond)
	m.Update()

	if !m.CreatedAt.Equal(createdAt) {
		t.Error("update must not touch createdAt")
	}
	if !m.ExpiresAt.Equal(expiresAt) {
		t.Error("update must not touch expiresAt")
	}
	if !m.UpdatedAt.After(createdAt) {
		t.Error("update must advance updatedAt")
	}
	if m.ExpiresAtDateTime != NeverExpires {
		t.Error("update must not touch the expiry rendering")
	}
}

func TestHasAnyTag(t *testing.T) {
	m := NewMetadata(0, "users", "profiles")

	if !m.HasAnyTag("profiles") {
		t.Error("expected intersection on 'profiles'")
	}
	if !m.HasAnyTag("sessions", "users") {
		t.Error("expected intersection on 'users'")
	}
	if m.HasAnyTag("sessions", "orders") {
		t.Error("expected no intersection")
	}
	if m.HasAnyTag() {
		t.Error("empty query set never intersects")
	}
}
