package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vlad92msk/synapse-sub001/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("users")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "users", cfg.Name)
	assert.Equal(t, StorageTypeMemory, cfg.StorageType)
	assert.Equal(t, MergeFirstWins, cfg.Singleton.MergeStrategy)
	assert.True(t, cfg.Singleton.WarnOnConflict)
	assert.False(t, cfg.Batch.Enabled)
	assert.False(t, cfg.Cache.Enabled)
}

func TestConfigKey(t *testing.T) {
	cfg := DefaultConfig("users")
	assert.Equal(t, "memory_users", cfg.Key())

	cfg.Singleton.Key = "custom-key"
	assert.Equal(t, "custom-key", cfg.Key())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"empty name", func(c *Config) { c.Name = "" }, true},
		{"unknown storage type", func(c *Config) { c.StorageType = "indexeddb" }, true},
		{"local storage type", func(c *Config) { c.StorageType = StorageTypeLocal }, false},
		{"zero batch size when enabled", func(c *Config) {
			c.Batch.Enabled = true
			c.Batch.BatchSize = 0
		}, true},
		{"negative batch delay", func(c *Config) {
			c.Batch.Enabled = true
			c.Batch.BatchDelay = -time.Second
		}, true},
		{"batch disabled ignores size", func(c *Config) { c.Batch.BatchSize = 0 }, false},
		{"negative ttl when cache enabled", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.TTL = -time.Second
		}, true},
		{"zero ttl is unbounded, valid", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.TTL = 0
		}, false},
		{"cleanup enabled without interval", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Cleanup.Enabled = true
			c.Cache.Cleanup.Interval = 0
		}, true},
		{"unknown merge strategy", func(c *Config) { c.Singleton.MergeStrategy = "newest_wins" }, true},
		{"empty merge strategy tolerated", func(c *Config) { c.Singleton.MergeStrategy = "" }, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig("users")
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig("users")
	cfg.InitialState = map[string]any{
		"profile": map[string]any{"theme": "dark"},
	}

	clone := cfg.Clone()
	require.NotSame(t, cfg, clone)
	assert.Equal(t, cfg.Name, clone.Name)

	// Mutating the clone's nested state must not leak into the original
	clone.InitialState["profile"].(map[string]any)["theme"] = "light"
	assert.Equal(t, "dark", cfg.InitialState["profile"].(map[string]any)["theme"])
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	content := `{
		"name": "users",
		"storage_type": "memory",
		"batch": {"enabled": true, "batch_size": 5, "batch_delay": 50000000},
		"singleton": {"enabled": true, "merge_strategy": "deep_merge", "warn_on_conflict": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "users", cfg.Name)
	assert.Equal(t, 5, cfg.Batch.BatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Batch.BatchDelay)
	assert.Equal(t, MergeDeep, cfg.Singleton.MergeStrategy)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.yaml")
	content := `
name: sessions
storage_type: memory
cache:
  enabled: true
  ttl: 60000000000
singleton:
  enabled: true
  warn_on_conflict: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sessions", cfg.Name)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoadHumanReadableDurations(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "store.json")
	jsonContent := `{
		"name": "users",
		"storage_type": "memory",
		"batch": {"enabled": true, "batch_size": 5, "batch_delay": "50ms"},
		"cache": {"enabled": true, "ttl": "2m", "cleanup": {"enabled": true, "interval": "30s"}}
	}`
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonContent), 0o600))

	cfg, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Batch.BatchDelay)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.Cleanup.Interval)

	yamlPath := filepath.Join(dir, "store.yaml")
	yamlContent := `
name: sessions
storage_type: memory
batch:
  enabled: true
  batch_size: 5
  batch_delay: 100ms
cache:
  enabled: true
  ttl: 1h
  cleanup:
    enabled: true
    interval: 5m
`
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlContent), 0o600))

	cfg, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Batch.BatchDelay)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Cleanup.Interval)

	malformed := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(malformed,
		[]byte(`{"name": "x", "storage_type": "memory", "batch": {"batch_delay": "soon"}}`), 0o600))
	_, err = Load(malformed)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "store.toml")
	require.NoError(t, os.WriteFile(bad, []byte("name = \"x\""), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"name": ""}`), 0o600))
	_, err = Load(invalid)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestSafeConfig(t *testing.T) {
	sc := NewSafeConfig(DefaultConfig("users"))

	got := sc.Get()
	assert.Equal(t, "users", got.Name)

	// Updates validate first
	require.Error(t, sc.Update(&Config{}))
	require.NoError(t, sc.Update(DefaultConfig("sessions")))
	assert.Equal(t, "sessions", sc.Get().Name)

	// Get hands out copies, not the live pointer
	got = sc.Get()
	got.Name = "mutated"
	assert.Equal(t, "sessions", sc.Get().Name)
}
