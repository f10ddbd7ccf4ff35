package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vlad92msk/synapse-sub001/config"
)

// recordingMiddleware appends its name on the way in and on the way out,
// making onion ordering observable.
type recordingMiddleware struct {
	name string
	log  *[]string
}

func (m *recordingMiddleware) Name() string                     { return m.name }
func (m *recordingMiddleware) Setup(context.Context, API) error { return nil }
func (m *recordingMiddleware) Reducer(_ API) func(Next) Next {
	return func(next Next) Next {
		return NextFunc(func(ctx context.Context, action Action) (any, error) {
			*m.log = append(*m.log, m.name+":in")
			result, err := next.Dispatch(ctx, action)
			*m.log = append(*m.log, m.name+":out")
			return result, err
		})
	}
}

// shortCircuitMiddleware services one action type without calling next.
type shortCircuitMiddleware struct {
	actionType string
	result     any
}

func (m *shortCircuitMiddleware) Name() string                     { return "short-circuit" }
func (m *shortCircuitMiddleware) Setup(context.Context, API) error { return nil }
func (m *shortCircuitMiddleware) Reducer(_ API) func(Next) Next {
	return func(next Next) Next {
		return NextFunc(func(ctx context.Context, action Action) (any, error) {
			if action.Type == m.actionType {
				return m.result, nil
			}
			return next.Dispatch(ctx, action)
		})
	}
}

// reentrantMiddleware services "increment" by dispatching a set through
// the API, which must re-enter the pipeline from the first stage.
type reentrantMiddleware struct{}

func (m *reentrantMiddleware) Name() string                     { return "reentrant" }
func (m *reentrantMiddleware) Setup(context.Context, API) error { return nil }
func (m *reentrantMiddleware) Reducer(api API) func(Next) Next {
	return func(next Next) Next {
		return NextFunc(func(ctx context.Context, action Action) (any, error) {
			if action.Type != "increment" {
				return next.Dispatch(ctx, action)
			}
			state, err := api.GetState(ctx)
			if err != nil {
				return nil, err
			}
			current, _ := state[action.Key].(int)
			return api.Dispatch(ctx, Set(action.Key, current+1))
		})
	}
}

// failingSetupMiddleware errors during Setup and then passes everything
// through.
type failingSetupMiddleware struct{}

func (m *failingSetupMiddleware) Name() string { return "failing-setup" }
func (m *failingSetupMiddleware) Setup(context.Context, API) error {
	return fmt.Errorf("auxiliary resource unavailable")
}
func (m *failingSetupMiddleware) Reducer(_ API) func(Next) Next {
	return func(next Next) Next { return next }
}

func TestMiddlewareOnionOrdering(t *testing.T) {
	var log []string
	s := newTestStore(t, WithMiddleware(
		&recordingMiddleware{name: "outer", log: &log},
		&recordingMiddleware{name: "inner", log: &log},
	))

	_, err := s.Dispatch(context.Background(), Set("k", 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:in", "inner:in", "inner:out", "outer:out"}, log)
}

func TestMiddlewareShortCircuit(t *testing.T) {
	var log []string
	s := newTestStore(t, WithMiddleware(
		&recordingMiddleware{name: "outer", log: &log},
		&shortCircuitMiddleware{actionType: "stub", result: "canned"},
		&recordingMiddleware{name: "inner", log: &log},
	))

	result, err := s.Dispatch(context.Background(), Action{Type: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "canned", result)

	// The inner stage never ran; the outer stage wrapped the short-circuit.
	assert.Equal(t, []string{"outer:in", "outer:out"}, log)
}

func TestMiddlewareDispatchReentersFromHead(t *testing.T) {
	var log []string
	s := newTestStore(t, WithMiddleware(
		&recordingMiddleware{name: "outer", log: &log},
		&reentrantMiddleware{},
	))

	ctx := context.Background()
	result, err := s.Dispatch(ctx, Action{Type: "increment", Key: "counter"})
	require.NoError(t, err)
	assert.Equal(t, 2, result)

	value, err := s.Dispatch(ctx, Get("counter"))
	require.NoError(t, err)
	assert.Equal(t, 2, value)

	// The inner set passed through the outer stage again: the outer
	// stage saw both the original action and the re-entrant one.
	assert.Equal(t,
		[]string{"outer:in", "outer:in", "outer:out", "outer:out", "outer:in", "outer:out"},
		log)
}

func TestMiddlewareSetupFailureDegrades(t *testing.T) {
	cfg := config.DefaultConfig("degraded")
	s, err := New(cfg, WithMiddleware(&failingSetupMiddleware{}))
	require.NoError(t, err)

	// Initialization succeeds despite the failing Setup.
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Destroy(context.Background())

	result, err := s.Dispatch(context.Background(), Set("k", "v"))
	require.NoError(t, err)
	assert.Equal(t, "v", result)
}
