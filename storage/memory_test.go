package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterGetSet(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	_, ok, err := adapter.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, adapter.Set(ctx, "users_list", []string{"alice", "bob"}))

	value, ok, err := adapter.Get(ctx, "users_list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, value)

	// Overwrite replaces the value.
	require.NoError(t, adapter.Set(ctx, "users_list", []string{"carol"}))
	value, ok, err = adapter.Get(ctx, "users_list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"carol"}, value)
}

func TestMemoryAdapterDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	require.NoError(t, adapter.Set(ctx, "key", 1))
	require.NoError(t, adapter.Delete(ctx, "key"))
	require.NoError(t, adapter.Delete(ctx, "key"))

	_, ok, err := adapter.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAdapterClearAndKeys(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	require.NoError(t, adapter.Set(ctx, "a", 1))
	require.NoError(t, adapter.Set(ctx, "b", 2))
	require.NoError(t, adapter.Set(ctx, "c", 3))

	keys, err := adapter.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, 3, adapter.Size())

	require.NoError(t, adapter.Clear(ctx))
	keys, err = adapter.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, 0, adapter.Size())
}

func TestMemoryAdapterConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, adapter.Set(ctx, key, i))
			_, _, err := adapter.Get(ctx, key)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, adapter.Size())
}
