package storage

import (
	"fmt"

	"github.com/hyperjump/ocrdown/internal/config"
)

// Backend names the result store implementation.
type Backend string

const (
	// BackendMemory keeps results in process memory (lost on restart).
	BackendMemory Backend = "memory"
	// BackendSQLite persists results in a SQLite database file.
	BackendSQLite Backend = "sqlite"
	// BackendRedis stores results in Redis, shared between processes.
	BackendRedis Backend = "redis"
)

// NewResultStore creates the result store selected by cfg.Backend.
// Supported backends: "memory" (default), "sqlite", "redis".
func NewResultStore(cfg *config.StorageConfig) (ResultStore, error) {
	switch Backend(cfg.Backend) {
	case BackendMemory, "":
		return NewMemoryStore(cfg.MaxEntries), nil
	case BackendSQLite:
		store, err := NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendRedis:
		store, err := NewRedisStore(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, redis)", cfg.Backend)
	}
}
