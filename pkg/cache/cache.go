package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small key/value cache with per-entry expiration.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value for expiration; zero uses the backend default.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// RedisBacked is implemented by caches that hold a redis connection.
type RedisBacked interface {
	Client() *redis.Client
}

// Config selects and configures the cache backend.
type Config struct {
	// gocache, lru or redis
	Type string `env:"CACHE_TYPE" env-default:"gocache"`

	Redis RedisConfig

	Local LocalConfig
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" env-default:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
	KeyPrefix    string        `env:"REDIS_KEY_PREFIX" env-default:"whispen:"`
}

// LocalConfig configures the in-process backends.
type LocalConfig struct {
	// only used by the lru backend
	MaxSize int `env:"LOCAL_CACHE_MAX_SIZE" env-default:"1000"`

	DefaultExpiration time.Duration `env:"LOCAL_CACHE_DEFAULT_EXPIRATION" env-default:"5m"`

	CleanupInterval time.Duration `env:"LOCAL_CACHE_CLEANUP_INTERVAL" env-default:"10m"`
}
