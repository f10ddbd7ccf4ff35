package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/Vlad92msk/synapse-sub001/config"
	"github.com/Vlad92msk/synapse-sub001/errors"
	"github.com/Vlad92msk/synapse-sub001/store"
)

// Entry is one registered singleton: the resolved key, the configuration
// the instance was built with (merged over time under deep_merge), and the
// live store.
type Entry struct {
	Key    string
	Config *config.Config
	Store  *store.Store
}

// Registry is the process-wide singleton cache for stores. Resolve is an
// atomic check-and-insert: two call sites racing on first-time resolution
// for the same key serialize on one mutex, so the loser sees the winner's
// entry and applies the merge strategy instead of double-constructing.
type Registry struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*Entry
	closed  bool
}

// Option configures a registry.
type Option func(*Registry)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry. Entries persist until explicitly
// unregistered or the registry is closed; nothing is collected implicitly.
func New(options ...Option) *Registry {
	r := &Registry{
		logger:  slog.Default(),
		entries: make(map[string]*Entry),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Resolve returns the store for the config's registry key, constructing
// and initializing it on first request. A later request with a different
// config for the same key is settled by the requested merge strategy;
// strict conflicts surface as a classified configuration-conflict error.
//
// Configs with the singleton surface disabled always construct a fresh
// unmanaged store.
func (r *Registry) Resolve(ctx context.Context, cfg *config.Config, storeOptions ...store.Option) (*store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "registry", "Resolve", "configuration validation")
	}

	if !cfg.Singleton.Enabled {
		return r.construct(ctx, cfg, "", storeOptions)
	}

	key := cfg.Key()

	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return nil, errors.WrapFatal(
			fmt.Errorf("registry closed"), "registry", "Resolve", "lifecycle check")
	}

	existing, ok := r.entries[key]
	if !ok {
		// Construction runs to completion under the lock: the
		// check-and-insert is one atomic step.
		s, err := r.construct(ctx, cfg, key, storeOptions)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.entries[key] = &Entry{Key: key, Config: cfg.Clone(), Store: s}
		r.mu.Unlock()
		r.logger.Debug("singleton registered", "key", key, "store_id", s.ID())
		return s, nil
	}

	if configsEqual(existing.Config, cfg) {
		r.mu.Unlock()
		return existing.Store, nil
	}

	s, replaced, apply, err := r.resolveConflict(ctx, existing, cfg, storeOptions)
	r.mu.Unlock()

	// An overridden store is destroyed outside the lock; its destroy hook
	// re-enters the registry.
	if replaced != nil {
		if destroyErr := replaced.Destroy(ctx); destroyErr != nil {
			r.logger.Warn("override teardown of previous store failed",
				"key", key, "error", destroyErr)
		}
	}
	// Deep-merged state is dispatched outside the lock too: a Set can
	// block on the store's batching window, and watchers may re-enter
	// the registry.
	if err == nil && apply != nil {
		err = apply(ctx)
	}
	return s, err
}

// resolveConflict settles a repeated resolution whose config differs from
// the registered one. Called with the registry lock held; a non-nil
// replaced store must be destroyed, and a non-nil apply step run, by the
// caller after unlocking.
func (r *Registry) resolveConflict(ctx context.Context, existing *Entry, cfg *config.Config, storeOptions []store.Option) (s *store.Store, replaced *store.Store, apply func(context.Context) error, err error) {
	strategy := cfg.Singleton.MergeStrategy
	if strategy == "" {
		strategy = config.MergeFirstWins
	}

	switch strategy {
	case config.MergeStrict:
		return nil, nil, nil, errors.WrapInvalid(
			fmt.Errorf("%w: key %q resolved with a different configuration",
				errors.ErrConfigConflict, existing.Key),
			"registry", "Resolve", "strict conflict check")

	case config.MergeFirstWins:
		return existing.Store, nil, nil, nil

	case config.MergeWarnAndUseFirst:
		if cfg.Singleton.WarnOnConflict {
			r.logger.Warn("singleton config conflict, using first registration",
				"key", existing.Key, "diff", diffConfigs(existing.Config, cfg))
		}
		return existing.Store, nil, nil, nil

	case config.MergeDeep:
		s, apply = r.deepMerge(existing, cfg)
		return s, nil, apply, nil

	case config.MergeOverride:
		s, replaced, err = r.override(ctx, existing, cfg, storeOptions)
		return s, replaced, nil, err

	default:
		return nil, nil, nil, errors.WrapInvalid(
			fmt.Errorf("unknown merge strategy %q", strategy),
			"registry", "Resolve", "strategy dispatch")
	}
}

// deepMerge folds the new initial state into the registered one, first
// registration winning on primitive conflicts. The merged config is
// recorded immediately; the returned step pushes changed keys into the
// live store and must run without the registry lock.
func (r *Registry) deepMerge(existing *Entry, cfg *config.Config) (*store.Store, func(context.Context) error) {
	previous := existing.Config.InitialState
	merged := DeepMerge(previous, cfg.InitialState)

	var changed []store.Action
	for key, value := range merged {
		if prior, ok := previous[key]; ok && reflect.DeepEqual(prior, value) {
			continue
		}
		changed = append(changed, store.Set(key, value))
	}

	existing.Config.InitialState = merged
	r.logger.Debug("singleton config deep-merged", "key", existing.Key)

	s := existing.Store
	return s, func(ctx context.Context) error {
		for _, action := range changed {
			if _, err := s.Dispatch(ctx, action); err != nil {
				return errors.Wrap(err, "registry", "Resolve", "deep merge state application")
			}
		}
		return nil
	}
}

// override reconstructs the entry with the new config, preserving the
// identity-defining name and key fields. The entry is replaced before the
// old store is handed back for destruction, so the old store's destroy
// hook cannot drop the new entry.
func (r *Registry) override(ctx context.Context, existing *Entry, cfg *config.Config, storeOptions []store.Option) (*store.Store, *store.Store, error) {
	next := cfg.Clone()
	next.Name = existing.Config.Name
	next.Singleton.Key = existing.Config.Singleton.Key

	s, err := r.construct(ctx, next, existing.Key, storeOptions)
	if err != nil {
		return nil, nil, err
	}

	old := existing.Store
	r.entries[existing.Key] = &Entry{Key: existing.Key, Config: next, Store: s}
	r.logger.Debug("singleton overridden", "key", existing.Key, "store_id", s.ID())
	return s, old, nil
}

// construct builds and initializes a store. A non-empty key installs a
// destroy hook that drops the registry entry when the store is destroyed
// outside registry control.
func (r *Registry) construct(ctx context.Context, cfg *config.Config, key string, storeOptions []store.Option) (*store.Store, error) {
	options := append([]store.Option{}, storeOptions...)

	var s *store.Store
	if key != "" {
		options = append(options, store.WithDestroyHook(func() {
			r.remove(key, s)
		}))
	}

	built, err := store.New(cfg, options...)
	if err != nil {
		return nil, err
	}
	s = built

	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// remove drops the entry for key if it still points at the given store.
// Locks internally so destroy hooks can fire from any goroutine; entries
// replaced by override are left alone.
func (r *Registry) remove(key string, s *store.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if ok && entry.Store == s {
		delete(r.entries, key)
	}
}

// Get returns the registered store for key, if any.
func (r *Registry) Get(key string) (*store.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Store, true
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Unregister destroys the store registered for key and drops the entry.
// Unregistering an absent key is a no-op.
func (r *Registry) Unregister(ctx context.Context, key string) error {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return entry.Store.Destroy(ctx)
}

// Close destroys every registered store and rejects further resolutions.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.entries = make(map[string]*Entry)
	r.mu.Unlock()

	var firstErr error
	for _, entry := range entries {
		if err := entry.Store.Destroy(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
