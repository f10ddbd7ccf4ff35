package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Vlad92msk/synapse-sub001/errors"
)

// Storage type constants
const (
	StorageTypeMemory = "memory" // In-process state only
	StorageTypeLocal  = "local"  // Backed by a persistence adapter
)

// MergeStrategy controls how the singleton registry resolves a second
// construction request for an already-registered key with a different config.
type MergeStrategy string

const (
	// MergeStrict fails with a configuration-conflict error unless the
	// configs are structurally identical.
	MergeStrict MergeStrategy = "strict"
	// MergeFirstWins silently returns the first instance; the new config
	// is discarded. This is the default.
	MergeFirstWins MergeStrategy = "first_wins"
	// MergeDeep recursively merges the new initial state into the stored
	// one; on conflicting primitive leaves the first-registered value wins.
	MergeDeep MergeStrategy = "deep_merge"
	// MergeOverride replaces the stored config and reconstructs the
	// instance, preserving the identity-defining name and key fields.
	MergeOverride MergeStrategy = "override"
	// MergeWarnAndUseFirst behaves like first_wins but logs a structural
	// diff of the two configs as a warning.
	MergeWarnAndUseFirst MergeStrategy = "warn_and_use_first"
)

// Valid reports whether the strategy is one of the defined values.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeStrict, MergeFirstWins, MergeDeep, MergeOverride, MergeWarnAndUseFirst:
		return true
	}
	return false
}

// duration accepts both Go duration strings ("100ms", "5m") and plain
// integer nanoseconds when decoding configuration files.
type duration time.Duration

func (d *duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *duration) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		*d = 0
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = duration(parsed)
	case float64:
		*d = duration(v)
	case int:
		*d = duration(v)
	case int64:
		*d = duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// BatchConfig configures the action-batching middleware.
type BatchConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	BatchSize  int           `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	BatchDelay time.Duration `json:"batch_delay,omitempty" yaml:"batch_delay,omitempty"`
	// Segments, when present, restricts batching to actions whose
	// metadata segment is in the allow-list; all other actions bypass.
	Segments []string `json:"segments,omitempty" yaml:"segments,omitempty"`
}

func (b *BatchConfig) UnmarshalJSON(data []byte) error {
	type alias BatchConfig
	aux := struct {
		*alias
		BatchDelay duration `json:"batch_delay"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.BatchDelay = time.Duration(aux.BatchDelay)
	return nil
}

func (b *BatchConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Enabled    bool     `yaml:"enabled"`
		BatchSize  int      `yaml:"batch_size"`
		BatchDelay duration `yaml:"batch_delay"`
		Segments   []string `yaml:"segments"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*b = BatchConfig{
		Enabled:    aux.Enabled,
		BatchSize:  aux.BatchSize,
		BatchDelay: time.Duration(aux.BatchDelay),
		Segments:   aux.Segments,
	}
	return nil
}

// CleanupConfig configures proactive sweeping of expired cache entries.
type CleanupConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
}

func (c *CleanupConfig) UnmarshalJSON(data []byte) error {
	type alias CleanupConfig
	aux := struct {
		*alias
		Interval duration `json:"interval"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Interval = time.Duration(aux.Interval)
	return nil
}

func (c *CleanupConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Enabled  bool     `yaml:"enabled"`
		Interval duration `yaml:"interval"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*c = CleanupConfig{Enabled: aux.Enabled, Interval: time.Duration(aux.Interval)}
	return nil
}

// CacheConfig configures the caching middleware.
type CacheConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	TTL               time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Cleanup           CleanupConfig `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	InvalidateOnError bool          `json:"invalidate_on_error,omitempty" yaml:"invalidate_on_error,omitempty"`
}

func (c *CacheConfig) UnmarshalJSON(data []byte) error {
	type alias CacheConfig
	aux := struct {
		*alias
		TTL duration `json:"ttl"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.TTL = time.Duration(aux.TTL)
	return nil
}

func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Enabled           bool          `yaml:"enabled"`
		TTL               duration      `yaml:"ttl"`
		Cleanup           CleanupConfig `yaml:"cleanup"`
		InvalidateOnError bool          `yaml:"invalidate_on_error"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*c = CacheConfig{
		Enabled:           aux.Enabled,
		TTL:               time.Duration(aux.TTL),
		Cleanup:           aux.Cleanup,
		InvalidateOnError: aux.InvalidateOnError,
	}
	return nil
}

// SingletonConfig configures registry participation for a store.
type SingletonConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	MergeStrategy  MergeStrategy `json:"merge_strategy,omitempty" yaml:"merge_strategy,omitempty"`
	WarnOnConflict bool          `json:"warn_on_conflict" yaml:"warn_on_conflict"`
	// Key overrides the derived "<storageType>_<name>" registry key.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// Config represents the complete configuration of one store.
type Config struct {
	Name         string          `json:"name" yaml:"name"`
	StorageType  string          `json:"storage_type" yaml:"storage_type"`
	InitialState map[string]any  `json:"initial_state,omitempty" yaml:"initial_state,omitempty"`
	Batch        BatchConfig     `json:"batch,omitempty" yaml:"batch,omitempty"`
	Cache        CacheConfig     `json:"cache,omitempty" yaml:"cache,omitempty"`
	Singleton    SingletonConfig `json:"singleton,omitempty" yaml:"singleton,omitempty"`
}

// DefaultConfig returns the baseline configuration for a named store.
func DefaultConfig(name string) *Config {
	return &Config{
		Name:        name,
		StorageType: StorageTypeMemory,
		Batch: BatchConfig{
			Enabled:    false,
			BatchSize:  10,
			BatchDelay: 100 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     5 * time.Minute,
			Cleanup: CleanupConfig{
				Enabled:  false,
				Interval: time.Minute,
			},
		},
		Singleton: SingletonConfig{
			Enabled:        true,
			MergeStrategy:  MergeFirstWins,
			WarnOnConflict: true,
		},
	}
}

// Key derives the singleton registry key for this config:
// the explicit override when present, otherwise "<storageType>_<name>".
func (c *Config) Key() string {
	if c.Singleton.Key != "" {
		return c.Singleton.Key
	}
	return fmt.Sprintf("%s_%s", c.StorageType, c.Name)
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "nil config")
	}
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "store name validation")
	}
	if c.StorageType != StorageTypeMemory && c.StorageType != StorageTypeLocal {
		return errors.WrapInvalid(
			fmt.Errorf("unknown storage type %q", c.StorageType),
			"Config", "Validate", "storage type validation")
	}
	if c.Batch.Enabled {
		if c.Batch.BatchSize <= 0 {
			return errors.WrapInvalid(
				fmt.Errorf("batch size must be positive, got %d", c.Batch.BatchSize),
				"Config", "Validate", "batch size validation")
		}
		if c.Batch.BatchDelay < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("batch delay must not be negative, got %s", c.Batch.BatchDelay),
				"Config", "Validate", "batch delay validation")
		}
	}
	if c.Cache.Enabled {
		if c.Cache.TTL < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("cache ttl must not be negative, got %s", c.Cache.TTL),
				"Config", "Validate", "cache ttl validation")
		}
		if c.Cache.Cleanup.Enabled && c.Cache.Cleanup.Interval <= 0 {
			return errors.WrapInvalid(
				fmt.Errorf("cleanup interval must be positive, got %s", c.Cache.Cleanup.Interval),
				"Config", "Validate", "cleanup interval validation")
		}
	}
	if c.Singleton.MergeStrategy != "" && !c.Singleton.MergeStrategy.Valid() {
		return errors.WrapInvalid(
			fmt.Errorf("unknown merge strategy %q", c.Singleton.MergeStrategy),
			"Config", "Validate", "merge strategy validation")
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		// Fallback to shallow copy if marshaling fails
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		// Fallback to shallow copy if unmarshaling fails
		copied := *c
		return &copied
	}

	return &clone
}

// Load reads a configuration file, dispatching on extension:
// .json, .yaml or .yml. The loaded config is validated before return.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "file read")
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "json parse")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "yaml parse")
		}
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unsupported config extension %q", filepath.Ext(path)),
			"Config", "Load", "extension check")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SafeConfig provides thread-safe access to a configuration that may be
// replaced or merged while a store is live (registry override and deep-merge
// strategies mutate the stored config).
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
