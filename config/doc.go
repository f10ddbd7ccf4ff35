// Package config defines the configuration surfaces of the synapse engine.
//
// A Config describes one store: its identity (Name, StorageType), its seed
// state, and the three tunable surfaces: batching (BatchConfig), caching
// (CacheConfig) and singleton resolution (SingletonConfig). Configs are
// plain serializable data: middlewares, validators and other function-valued
// collaborators are wired through store options instead, which keeps
// structural comparison in the singleton registry total and predictable.
//
// DefaultConfig returns a validated baseline; Load reads JSON or YAML files
// by extension. Clone performs a deep copy through a JSON round-trip so
// registry merge strategies never alias caller-owned maps.
package config
