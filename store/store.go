package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vlad92msk/synapse-sub001/config"
	"github.com/Vlad92msk/synapse-sub001/errors"
	"github.com/Vlad92msk/synapse-sub001/metric"
)

// Status represents the lifecycle state of a store.
type Status int

const (
	// StatusCreated means the store exists but Initialize has not run.
	StatusCreated Status = iota
	// StatusInitialized means the store accepts dispatches.
	StatusInitialized
	// StatusDestroyed means the store has been torn down permanently.
	StatusDestroyed
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusInitialized:
		return "initialized"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Validator rejects a value before a mutation applies. A non-nil error
// surfaces at the dispatch call site as a validation failure and leaves
// state untouched.
type Validator interface {
	Validate(ctx context.Context, action Action) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, action Action) error

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, action Action) error {
	return f(ctx, action)
}

// Store is a single-process reactive state container. All mutations flow
// through an ordered middleware pipeline ending in the terminal reducer;
// derived values are read through selectors subscribed to state changes.
//
// Dispatches are serialized at the terminal reducer: two concurrent
// Dispatch calls interleave only at middleware suspension points, never
// mid-mutation.
type Store struct {
	id     string
	cfg    *config.Config
	logger *slog.Logger

	metrics   *metric.Metrics
	validator Validator
	onDestroy func()

	middlewares []Middleware
	chain       Next

	mu       sync.Mutex
	state    map[string]any
	version  uint64
	snapshot map[string]any
	status   Status

	creatorMu sync.RWMutex
	creators  map[string]ActionCreator

	watcherMu   sync.Mutex
	watchers    []*watcher
	nextWatchID int
}

type watcher struct {
	id     int
	notify func(map[string]any)
}

// Option configures a store at construction time.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics wires the store to the core metrics of the given registry.
// If registry is nil, this option is ignored; statistics-free operation is
// always available.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Store) {
		if registry != nil {
			s.metrics = registry.CoreMetrics()
		}
	}
}

// WithMiddleware appends middlewares to the pipeline in registration order.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(s *Store) {
		s.middlewares = append(s.middlewares, middlewares...)
	}
}

// WithValidator sets the mutation validator.
func WithValidator(validator Validator) Option {
	return func(s *Store) {
		s.validator = validator
	}
}

// WithDestroyHook registers a callback invoked once when the store is
// destroyed. The singleton registry uses it to drop its entry.
func WithDestroyHook(hook func()) Option {
	return func(s *Store) {
		s.onDestroy = hook
	}
}

// New creates a store from the given configuration. The store must be
// initialized before it accepts dispatches.
func New(cfg *config.Config, options ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "store", "New", "configuration validation")
	}

	s := &Store{
		id:       uuid.NewString(),
		cfg:      cfg.Clone(),
		logger:   slog.Default(),
		state:    make(map[string]any),
		creators: builtinCreators(),
	}
	for key, value := range cfg.InitialState {
		s.state[key] = value
	}

	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With("store", cfg.Name)

	if s.metrics != nil {
		s.metrics.StoreStatus.WithLabelValues(s.cfg.Name).Set(float64(StatusCreated))
	}

	return s, nil
}

// ID returns the unique instance identifier assigned at construction.
func (s *Store) ID() string { return s.id }

// Name returns the configured store name.
func (s *Store) Name() string { return s.cfg.Name }

// Config returns a deep copy of the store configuration.
func (s *Store) Config() *config.Config { return s.cfg.Clone() }

// Status returns the current lifecycle state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Initialize runs every middleware's Setup and composes the dispatch
// pipeline. Setup errors degrade the offending stage with a logged warning
// rather than aborting; only lifecycle misuse fails Initialize.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	switch s.status {
	case StatusInitialized:
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyInitialized, "store", "Initialize", "lifecycle check")
	case StatusDestroyed:
		s.mu.Unlock()
		return errors.WrapFatal(errors.ErrStoreDestroyed, "store", "Initialize", "lifecycle check")
	}
	s.mu.Unlock()

	for _, mw := range s.middlewares {
		if err := mw.Setup(ctx, s); err != nil {
			// Degrade, don't abort: auxiliary middleware failures must
			// not take the whole store down.
			s.logger.Warn("middleware setup failed, continuing degraded",
				"middleware", mw.Name(), "error", err)
		}
	}

	s.chain = compose(s, s.middlewares, NextFunc(s.reduce))

	s.mu.Lock()
	s.status = StatusInitialized
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StoreStatus.WithLabelValues(s.cfg.Name).Set(float64(StatusInitialized))
	}
	s.logger.Info("store initialized", "id", s.id, "middlewares", len(s.middlewares))
	return nil
}

// Dispatch sends an action through the middleware pipeline. Middlewares
// run in registration order on the way in and reverse order on the way
// out; the terminal reducer applies recognized action types to state.
func (s *Store) Dispatch(ctx context.Context, action Action) (any, error) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	switch status {
	case StatusDestroyed:
		return nil, errors.WrapFatal(errors.ErrStoreDestroyed, "store", "Dispatch", "lifecycle check")
	case StatusCreated:
		return nil, errors.WrapInvalid(errors.ErrNotInitialized, "store", "Dispatch", "lifecycle check")
	}

	start := time.Now()
	result, err := s.chain.Dispatch(ctx, action)

	if s.metrics != nil {
		s.metrics.ActionsDispatched.WithLabelValues(s.cfg.Name, action.Type).Inc()
		s.metrics.DispatchDuration.WithLabelValues(s.cfg.Name, action.Type).
			Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.ErrorsTotal.WithLabelValues(s.cfg.Name, errors.Classify(err).String()).Inc()
		}
	}
	return result, err
}

// GetState returns an independent copy of the current state.
func (s *Store) GetState(_ context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusDestroyed {
		return nil, errors.WrapFatal(errors.ErrStoreDestroyed, "store", "GetState", "lifecycle check")
	}
	stateCopy := make(map[string]any, len(s.state))
	for key, value := range s.state {
		stateCopy[key] = value
	}
	return stateCopy, nil
}

// Snapshot returns the shared read-only view of the current state. The
// same map reference is returned until the next mutation, which is what
// lets selectors use reference equality to skip recomputation. Callers
// must not mutate the returned map.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]any {
	if s.snapshot == nil {
		s.snapshot = make(map[string]any, len(s.state))
		for key, value := range s.state {
			s.snapshot[key] = value
		}
	}
	return s.snapshot
}

// Version returns the monotonically increasing state version.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Watch registers a change callback invoked with the post-mutation
// snapshot after every state change, in registration order. The returned
// function removes the registration.
func (s *Store) Watch(notify func(map[string]any)) func() {
	s.watcherMu.Lock()
	defer s.watcherMu.Unlock()

	s.nextWatchID++
	w := &watcher{id: s.nextWatchID, notify: notify}
	s.watchers = append(s.watchers, w)

	return func() {
		s.watcherMu.Lock()
		defer s.watcherMu.Unlock()
		for i, candidate := range s.watchers {
			if candidate.id == w.id {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// Subscribe adapts Watch to the selector module's source contract.
func (s *Store) Subscribe(notify func(map[string]any)) func() {
	return s.Watch(notify)
}

// FindActionByType returns the creator registered for the given action
// type, if any.
func (s *Store) FindActionByType(actionType string) (ActionCreator, bool) {
	s.creatorMu.RLock()
	defer s.creatorMu.RUnlock()
	creator, ok := s.creators[actionType]
	return creator, ok
}

// RegisterAction registers a creator for a custom action type. Custom
// types flow through the pipeline and resolve to a nil result unless a
// middleware services them.
func (s *Store) RegisterAction(actionType string, creator ActionCreator) {
	s.creatorMu.Lock()
	defer s.creatorMu.Unlock()
	s.creators[actionType] = creator
}

// Destroy tears the store down: pending batch timers are cancelled through
// middleware teardown, watchers are detached, and the singleton registry
// entry is dropped. Destroy is idempotent; dispatch after destroy fails
// with a fatal classified error.
func (s *Store) Destroy(_ context.Context) error {
	s.mu.Lock()
	if s.status == StatusDestroyed {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusDestroyed
	s.mu.Unlock()

	// Teardown in reverse registration order, mirroring the onion's
	// unwind direction.
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		closer, ok := s.middlewares[i].(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.logger.Warn("middleware teardown failed",
				"middleware", s.middlewares[i].Name(), "error", err)
		}
	}

	s.watcherMu.Lock()
	s.watchers = nil
	s.watcherMu.Unlock()

	if s.onDestroy != nil {
		s.onDestroy()
	}
	if s.metrics != nil {
		s.metrics.StoreStatus.WithLabelValues(s.cfg.Name).Set(float64(StatusDestroyed))
	}
	s.logger.Info("store destroyed", "id", s.id)
	return nil
}

// reduce is the terminal pipeline stage: it applies recognized action
// types to state and bumps the state version on every mutation.
func (s *Store) reduce(ctx context.Context, action Action) (any, error) {
	if s.validator != nil && !action.IsRead() {
		if err := s.validator.Validate(ctx, action); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrValidationFailed, err),
				"store", "reduce", "mutation validation")
		}
	}

	s.mu.Lock()
	if s.status == StatusDestroyed {
		s.mu.Unlock()
		return nil, errors.WrapFatal(errors.ErrStoreDestroyed, "store", "reduce", "lifecycle check")
	}

	var (
		result  any
		err     error
		mutated bool
	)

	switch action.Type {
	case ActionSet:
		s.state[action.Key] = action.Payload
		result = action.Payload
		mutated = true

	case ActionUpdate:
		existing, ok := s.state[action.Key]
		if !ok {
			err = errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrKeyNotFound, action.Key),
				"store", "reduce", "update target lookup")
			break
		}
		updated := mergeValue(existing, action.Payload)
		s.state[action.Key] = updated
		result = updated
		mutated = true

	case ActionGet:
		result = s.state[action.Key]

	case ActionDelete:
		if _, ok := s.state[action.Key]; ok {
			delete(s.state, action.Key)
			mutated = true
		}

	case ActionClear:
		if len(s.state) > 0 {
			s.state = make(map[string]any)
			mutated = true
		}

	case ActionKeys:
		keys := make([]string, 0, len(s.state))
		for key := range s.state {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		result = keys

	default:
		// Unknown types resolve to a nil result; middlewares may have
		// already serviced them upstream.
	}

	var snapshot map[string]any
	if mutated {
		s.version++
		s.snapshot = nil
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	if mutated {
		s.notifyWatchers(snapshot)
	}
	return result, err
}

func (s *Store) notifyWatchers(snapshot map[string]any) {
	s.watcherMu.Lock()
	current := make([]*watcher, len(s.watchers))
	copy(current, s.watchers)
	s.watcherMu.Unlock()

	for _, w := range current {
		w.notify(snapshot)
	}
}

// mergeValue merges an update payload into an existing value. Map payloads
// merge key-wise into existing maps; anything else replaces the value.
func mergeValue(existing, payload any) any {
	existingMap, okExisting := existing.(map[string]any)
	payloadMap, okPayload := payload.(map[string]any)
	if !okExisting || !okPayload {
		return payload
	}
	merged := make(map[string]any, len(existingMap)+len(payloadMap))
	for key, value := range existingMap {
		merged[key] = value
	}
	for key, value := range payloadMap {
		merged[key] = value
	}
	return merged
}
