package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BackendType selects the cache backend.
type BackendType string

const (
	// BackendMemory is the bounded in-process LRU backend.
	BackendMemory BackendType = "memory"
	// BackendRedis is the distributed fail-open backend.
	BackendRedis BackendType = "redis"
)

// Config holds backend selection and sizing for the embedding cache.
type Config struct {
	Backend       string        `yaml:"backend"`
	Capacity      int           `yaml:"capacity"`
	MaxMemoryMB   int           `yaml:"max_memory_mb"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// NewStore creates the backend named by cfg.Backend. The backend is chosen
// once at construction; there is no runtime switching.
func NewStore(cfg Config, logger *zap.Logger) (Store, error) {
	switch BackendType(cfg.Backend) {
	case BackendMemory, "":
		return NewMemoryStore(cfg.Capacity, cfg.MaxMemoryMB, cfg.DefaultTTL), nil
	case BackendRedis:
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DefaultTTL, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, redis)", cfg.Backend)
	}
}
