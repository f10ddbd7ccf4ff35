package store

import "context"

// Next is the continuation a middleware calls to hand an action to the
// remaining stages of the pipeline. Represented as a single-method interface
// so stages stay composable and testable in isolation.
type Next interface {
	Dispatch(ctx context.Context, action Action) (any, error)
}

// NextFunc adapts a function to the Next interface.
type NextFunc func(ctx context.Context, action Action) (any, error)

// Dispatch calls f.
func (f NextFunc) Dispatch(ctx context.Context, action Action) (any, error) {
	return f(ctx, action)
}

// API is the store surface exposed to middlewares. Dispatch re-enters the
// pipeline from the first stage, never from the caller's current position.
type API interface {
	GetState(ctx context.Context) (map[string]any, error)
	Dispatch(ctx context.Context, action Action) (any, error)
	FindActionByType(actionType string) (ActionCreator, bool)
}

// Middleware is one named stage of the dispatch pipeline.
//
// Setup runs once during store initialization; a Setup error degrades the
// stage (logged warning, stage still installed) rather than aborting
// initialization. Reducer wraps the continuation: a stage may inspect or
// transform the action before calling next, inspect or transform the result
// after next returns, or short-circuit by not calling next at all.
type Middleware interface {
	Name() string
	Setup(ctx context.Context, api API) error
	Reducer(api API) func(Next) Next
}

// compose wraps terminal with every middleware in reverse registration
// order, so stage 0 runs first on the way in and last on the way out.
func compose(api API, middlewares []Middleware, terminal Next) Next {
	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		next = middlewares[i].Reducer(api)(next)
	}
	return next
}
