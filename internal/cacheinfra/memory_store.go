package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the settings for the in-process memory store.
type Config struct {
	// Capacity defines the maximum number of entries the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0.
	NumShards int

	// TTL is the time-to-live for stored entries. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the store reaches capacity. Must be between 1-100.
	EvictionPercentage int
}

// DefaultConfig returns a Config with sensible defaults for a single
// catalog process.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// MemoryStore implements cache.Store on top of a sturdyc client. It is the
// backend used when no Redis address is configured, and in tests. Entry
// lifetime is the client-wide TTL; the per-call ttl argument is accepted
// for interface compatibility but sturdyc expires entries on the TTL the
// client was built with.
type MemoryStore struct {
	client *sturdyc.Client[[]byte]
}

// NewMemoryStore creates a memory-backed store from the given config.
func NewMemoryStore(cfg Config) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)
	return &MemoryStore{client: client}, nil
}

// Get returns the stored value, or (nil, nil) when the key is absent or
// expired.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.client.Get(key); ok {
		return v, nil
	}
	return nil, nil
}

// Set stores a value under key.
func (m *MemoryStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	m.client.Set(key, val)
	return nil
}

// Delete removes the given keys. Absent keys are ignored.
func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		m.client.Delete(k)
	}
	return nil
}
