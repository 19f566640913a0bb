package cache

import (
	"fmt"
	"strings"
)

// NewCache creates the backend named by config.Type.
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(config.Type)) {
	case "", "gocache":
		return NewGoCache(config.Local), nil
	case "lru", "local":
		return NewLocalCache(config.Local)
	case "redis":
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}
