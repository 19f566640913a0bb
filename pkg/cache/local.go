package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// localCache is a size bounded LRU. The LRU itself expires entries after the
// default expiration; shorter per-entry expirations are checked on read.
type localCache struct {
	lru *expirable.LRU[string, localItem]
}

type localItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewLocalCache creates a bounded in-process LRU cache.
func NewLocalCache(config LocalConfig) (Cache, error) {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	return &localCache{
		lru: expirable.NewLRU[string, localItem](size, nil, config.DefaultExpiration),
	}, nil
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	item, ok := lc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		lc.lru.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	item := localItem{value: value}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}
	lc.lru.Add(key, item)
	return nil
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Close() error {
	lc.lru.Purge()
	return nil
}
