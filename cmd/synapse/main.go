// Package main implements the synapse demo binary: it builds one store
// with the full middleware stack from a configuration file (or sensible
// defaults), exercises the dispatch pipeline, and prints what the engine
// did with it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/Vlad92msk/synapse-sub001/config"
	"github.com/Vlad92msk/synapse-sub001/metric"
	"github.com/Vlad92msk/synapse-sub001/registry"
	"github.com/Vlad92msk/synapse-sub001/selector"
	"github.com/Vlad92msk/synapse-sub001/storage"
	"github.com/Vlad92msk/synapse-sub001/store"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "synapse"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("configuration is valid", "store", cfg.Name)
		return nil
	}

	ctx := context.Background()
	metricsRegistry := metric.NewMetricsRegistry()
	reg := registry.New(registry.WithLogger(logger))
	defer func() {
		if err := reg.Close(ctx); err != nil {
			logger.Warn("registry teardown failed", "error", err)
		}
	}()

	adapter := storage.NewMemoryAdapter()
	batchMW := store.NewBatchMiddleware(cfg.Batch, logger, store.WithBatchMetrics(metricsRegistry))
	cacheMW := store.NewCacheMiddleware(cfg.Cache, adapter, logger, store.WithCacheMetrics(metricsRegistry))

	s, err := reg.Resolve(ctx, cfg,
		store.WithLogger(logger),
		store.WithMetrics(metricsRegistry),
		store.WithMiddleware(
			store.NewLoggingMiddleware(logger),
			batchMW,
			cacheMW,
		),
	)
	if err != nil {
		return err
	}

	return demo(ctx, s, batchMW, cacheMW, logger)
}

// loadConfig reads the store configuration, falling back to an in-process
// demo config when no file is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.DefaultConfig("demo")
		cfg.InitialState = map[string]any{"greeting": "hello"}
		cfg.Batch.Enabled = true
		cfg.Batch.BatchDelay = 50 * time.Millisecond
		cfg.Cache.Enabled = true
		cfg.Cache.TTL = time.Minute
		return cfg, nil
	}
	return config.Load(path)
}

// demo drives a short scripted session through the store: a burst of
// coalesced writes, cached reads, and a selector watching one slice.
func demo(ctx context.Context, s *store.Store, batchMW *store.BatchMiddleware, cacheMW *store.CacheMiddleware, logger *slog.Logger) error {
	users := selector.New[map[string]any, any](s, func(state map[string]any) any {
		return state["users"]
	}, selector.WithName[map[string]any, any]("users"))
	defer users.Close()

	unsubscribe := users.Subscribe(func(value any) {
		logger.Info("users slice changed", "value", value)
	})
	defer unsubscribe()

	// A same-key burst inside one batch window reaches the reducer as a
	// single write.
	writes := make(chan error, 3)
	for _, payload := range []any{
		[]string{"alice"},
		[]string{"alice", "bob"},
		[]string{"alice", "bob", "carol"},
	} {
		go func() {
			_, err := s.Dispatch(ctx, store.Set("users", payload))
			writes <- err
		}()
	}
	for i := 0; i < 3; i++ {
		if err := <-writes; err != nil {
			return err
		}
	}

	value, err := s.Dispatch(ctx, store.Get("users"))
	if err != nil {
		return err
	}
	logger.Info("read after burst", "users", value)

	// A second read is answered by the cache.
	if _, err := s.Dispatch(ctx, store.Get("users")); err != nil {
		return err
	}

	if stats := batchMW.Stats(); stats != nil {
		logger.Info("batch statistics",
			"added", stats.Added(),
			"coalesced", stats.Coalesced(),
			"flushes", stats.Flushes())
	}
	if stats := cacheMW.Stats(); stats != nil {
		logger.Info("cache statistics",
			"hits", stats.Hits(),
			"misses", stats.Misses(),
			"hit_ratio", fmt.Sprintf("%.2f", stats.HitRatio()))
	}

	state, err := s.GetState(ctx)
	if err != nil {
		return err
	}
	logger.Info("final state", "keys", len(state), "version", s.Version())
	return nil
}
