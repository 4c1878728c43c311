package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
//
// The primary cached value is the resolved ModelConfig bundle, keyed by
// model version ID. Configuration writes must invalidate the bundle so
// the next evaluation resolves fresh state.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetModelConfig retrieves a cached resolved configuration bundle.
	// Returns nil, nil on a miss.
	GetModelConfig(ctx context.Context, tenantID string, modelVersionID string) (*ModelConfig, error)

	// SetModelConfig caches a resolved configuration bundle.
	SetModelConfig(ctx context.Context, tenantID string, modelVersionID string, cfg *ModelConfig, ttl time.Duration) error

	// InvalidateModelConfig drops a cached bundle after a config write.
	InvalidateModelConfig(ctx context.Context, tenantID string, modelVersionID string) error

	// IncrementCounter atomically increments a counter and returns the
	// new value. Used for per-tenant engine run counters.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
