package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper adapts go-cache to Cache.
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache creates an in-process cache backed by go-cache.
func NewGoCache(config LocalConfig) Cache {
	return &goCacheWrapper{
		cache: gocache.New(config.DefaultExpiration, config.CleanupInterval),
	}
}

func (gc *goCacheWrapper) Get(ctx context.Context, key string) (interface{}, bool) {
	return gc.cache.Get(key)
}

func (gc *goCacheWrapper) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	gc.cache.Set(key, value, expiration)
	return nil
}

func (gc *goCacheWrapper) Delete(ctx context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

func (gc *goCacheWrapper) Close() error {
	gc.cache.Flush()
	return nil
}
