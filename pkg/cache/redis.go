package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache stores JSON encoded values in redis.
type redisCache struct {
	client *redis.Client
	config RedisConfig
}

// NewRedisCache connects to redis and verifies the connection with a ping.
func NewRedisCache(config RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisCache{
		client: client,
		config: config,
	}, nil
}

// Client exposes the connection so other components can share it.
func (rc *redisCache) Client() *redis.Client {
	return rc.client
}

func (rc *redisCache) key(k string) string {
	return rc.config.KeyPrefix + k
}

func (rc *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	raw, err := rc.client.Get(ctx, rc.key(key)).Result()
	if err != nil {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw, true
	}
	return value, true
}

func (rc *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return rc.client.Set(ctx, rc.key(key), data, expiration).Err()
}

func (rc *redisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, rc.key(key)).Err()
}

func (rc *redisCache) Close() error {
	return rc.client.Close()
}
