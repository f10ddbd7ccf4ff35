package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vlad92msk/synapse-sub001/errors"
)

type op struct {
	kind  string
	key   string
	value string
}

// mergeLastWins collapses repeated writes to the same key, keeping the
// latest value at the position of the earliest write.
func mergeLastWins(items []op) []op {
	latest := make(map[string]op)
	for _, item := range items {
		latest[item.key] = item
	}
	var merged []op
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.key] {
			continue
		}
		seen[item.key] = true
		merged = append(merged, latest[item.key])
	}
	return merged
}

func TestProcessorCoalescesRepeatedWrites(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](3),
		WithBatchDelay[op](0),
		WithMerge(mergeLastWins),
		WithResultKey[op](func(item op) string { return item.key }),
	)
	require.NoError(t, err)
	defer proc.Close()

	var mu sync.Mutex
	var executed []op
	exec := func(_ context.Context, item op) (any, error) {
		mu.Lock()
		executed = append(executed, item)
		mu.Unlock()
		return item.value, nil
	}

	items := []op{
		{kind: "set", key: "k1", value: "v1"},
		{kind: "set", key: "k1", value: "v2"},
		{kind: "set", key: "k2", value: "v3"},
	}

	// Items enter the segment in a known order; the third fills it.
	results := make([]any, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = proc.Add(context.Background(), item, exec)
		}()
		require.Eventually(t, func() bool {
			return proc.Stats().Added() > int64(i)
		}, 2*time.Second, time.Millisecond)
	}
	wg.Wait()

	for i, addErr := range errs {
		require.NoError(t, addErr, "item %d", i)
	}

	// Only the survivors execute, last value winning per key.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, executed, 2)
	byKey := map[string]string{}
	for _, item := range executed {
		byKey[item.key] = item.value
	}
	assert.Equal(t, "v2", byKey["k1"])
	assert.Equal(t, "v3", byKey["k2"])

	// Both k1 writers observe the surviving outcome.
	assert.Equal(t, "v2", results[0])
	assert.Equal(t, "v2", results[1])
	assert.Equal(t, "v3", results[2])

	assert.Equal(t, int64(3), proc.Stats().Added())
	assert.Equal(t, int64(1), proc.Stats().Coalesced())
	assert.Equal(t, int64(1), proc.Stats().SizeFlushes())
}

func TestProcessorRunsEachItemThroughItsOwnExecutor(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](3),
		WithBatchDelay[op](0),
	)
	require.NoError(t, err)
	defer proc.Close()

	// Every Add brings its own executor; with no coalescing each held
	// item must run through exactly the executor it was submitted with.
	items := []op{
		{key: "k1", value: "v1"},
		{key: "k2", value: "v2"},
		{key: "k3", value: "v3"},
	}

	results := make([]any, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = proc.Add(context.Background(), item,
				func(_ context.Context, held op) (any, error) {
					return fmt.Sprintf("exec-%d:%s", i, held.value), nil
				})
		}()
		require.Eventually(t, func() bool {
			return proc.Stats().Added() > int64(i)
		}, 2*time.Second, time.Millisecond)
	}
	wg.Wait()

	for i, addErr := range errs {
		require.NoError(t, addErr, "item %d", i)
	}
	assert.Equal(t, "exec-0:v1", results[0])
	assert.Equal(t, "exec-1:v2", results[1])
	assert.Equal(t, "exec-2:v3", results[2])
	assert.Equal(t, int64(0), proc.Stats().Coalesced())
}

func TestProcessorFlushesBySizeWithoutDelay(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](2),
		WithBatchDelay[op](0),
	)
	require.NoError(t, err)
	defer proc.Close()

	exec := func(_ context.Context, item op) (any, error) {
		return item.value, nil
	}

	first := make(chan any, 1)
	go func() {
		result, addErr := proc.Add(context.Background(), op{key: "a", value: "1"}, exec)
		if addErr != nil {
			first <- addErr
			return
		}
		first <- result
	}()

	// The second item fills the segment and releases both callers.
	result, err := proc.Add(context.Background(), op{key: "b", value: "2"}, exec)
	require.NoError(t, err)
	assert.Equal(t, "2", result)

	select {
	case out := <-first:
		assert.Equal(t, "1", out)
	case <-time.After(2 * time.Second):
		t.Fatal("first item never resolved")
	}

	assert.Equal(t, int64(1), proc.Stats().SizeFlushes())
	assert.Equal(t, int64(0), proc.Stats().DelayFlushes())
}

func TestProcessorFlushesByDelay(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](100),
		WithBatchDelay[op](20*time.Millisecond),
	)
	require.NoError(t, err)
	defer proc.Close()

	start := time.Now()
	result, err := proc.Add(context.Background(), op{key: "a", value: "1"},
		func(_ context.Context, item op) (any, error) {
			return item.value, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "1", result)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, int64(1), proc.Stats().DelayFlushes())
}

func TestProcessorBypassesNonBatchableItems(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchDelay[op](time.Hour),
		WithShouldBatch[op](func(item op) bool { return item.kind != "get" }),
	)
	require.NoError(t, err)
	defer proc.Close()

	// A read executes immediately even though the batch window is open.
	result, err := proc.Add(context.Background(), op{kind: "get", key: "k"},
		func(_ context.Context, item op) (any, error) {
			return "immediate", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "immediate", result)
	assert.Equal(t, int64(1), proc.Stats().Bypassed())
	assert.Equal(t, int64(0), proc.Stats().Added())
}

func TestProcessorSegmentsFlushIndependently(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](2),
		WithBatchDelay[op](0),
		WithSegmentKey[op](func(item op) string { return item.kind }),
	)
	require.NoError(t, err)
	defer proc.Close()

	exec := func(_ context.Context, item op) (any, error) {
		return item.value, nil
	}

	slow := make(chan any, 1)
	go func() {
		// Lands in the "update" segment, which never fills.
		result, _ := proc.Add(context.Background(), op{kind: "update", key: "x", value: "u"}, exec)
		slow <- result
	}()

	fast := make(chan any, 1)
	go func() {
		result, _ := proc.Add(context.Background(), op{kind: "set", key: "a", value: "1"}, exec)
		fast <- result
	}()

	// Filling the "set" segment must not flush the "update" one.
	result, err := proc.Add(context.Background(), op{kind: "set", key: "b", value: "2"}, exec)
	require.NoError(t, err)
	assert.Equal(t, "2", result)

	select {
	case out := <-fast:
		assert.Equal(t, "1", out)
	case <-time.After(2 * time.Second):
		t.Fatal("set segment never flushed")
	}

	select {
	case <-slow:
		t.Fatal("update segment flushed without filling")
	case <-time.After(50 * time.Millisecond):
	}

	proc.Flush()
	select {
	case out := <-slow:
		assert.Equal(t, "u", out)
	case <-time.After(2 * time.Second):
		t.Fatal("explicit flush never resolved the update segment")
	}
}

func TestProcessorMergePanicRejectsSegment(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](2),
		WithBatchDelay[op](0),
		WithMerge(func(items []op) []op {
			panic("conflicting writes")
		}),
	)
	require.NoError(t, err)
	defer proc.Close()

	exec := func(_ context.Context, item op) (any, error) {
		t.Error("executor must not run when the merge fails")
		return nil, nil
	}

	firstErr := make(chan error, 1)
	go func() {
		_, addErr := proc.Add(context.Background(), op{key: "a"}, exec)
		firstErr <- addErr
	}()

	_, err = proc.Add(context.Background(), op{key: "b"}, exec)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBatchMerge)

	select {
	case addErr := <-firstErr:
		assert.ErrorIs(t, addErr, errors.ErrBatchMerge)
	case <-time.After(2 * time.Second):
		t.Fatal("first item never resolved")
	}
}

func TestProcessorCloseRejectsHeldItems(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](100),
		WithBatchDelay[op](time.Hour),
	)
	require.NoError(t, err)

	exec := func(_ context.Context, item op) (any, error) {
		t.Error("held item must not execute after close")
		return nil, nil
	}

	heldErr := make(chan error, 1)
	go func() {
		_, addErr := proc.Add(context.Background(), op{key: "a"}, exec)
		heldErr <- addErr
	}()

	// Wait until the item is actually held before closing.
	require.Eventually(t, func() bool {
		return proc.Stats().Added() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, proc.Close())

	select {
	case addErr := <-heldErr:
		assert.ErrorIs(t, addErr, errors.ErrBatchClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("held item never rejected")
	}

	_, err = proc.Add(context.Background(), op{key: "b"}, exec)
	assert.ErrorIs(t, err, errors.ErrBatchClosed)
}

func TestProcessorRejectsInvalidBatchSize(t *testing.T) {
	_, err := New(context.Background(), WithBatchSize[op](0))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestProcessorConcurrentAdds(t *testing.T) {
	proc, err := New(context.Background(),
		WithBatchSize[op](5),
		WithBatchDelay[op](10*time.Millisecond),
		WithSegmentKey[op](func(item op) string { return item.kind }),
	)
	require.NoError(t, err)
	defer proc.Close()

	var executed sync.Map
	exec := func(_ context.Context, item op) (any, error) {
		executed.Store(item.key, item.value)
		return item.value, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := op{
				kind:  fmt.Sprintf("segment-%d", i%4),
				key:   fmt.Sprintf("key-%d", i),
				value: fmt.Sprintf("value-%d", i),
			}
			result, addErr := proc.Add(context.Background(), item, exec)
			assert.NoError(t, addErr)
			assert.Equal(t, item.value, result)
		}()
	}
	wg.Wait()

	count := 0
	executed.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 40, count)
	assert.Equal(t, int64(40), proc.Stats().Added())
}
