package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig() LocalConfig {
	return LocalConfig{
		MaxSize:           2,
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}
}

func TestBackends(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []string{"gocache", "lru"} {
		t.Run(typ, func(t *testing.T) {
			c, err := NewCache(Config{Type: typ, Local: localConfig()})
			require.NoError(t, err)
			defer c.Close()

			require.NoError(t, c.Set(ctx, "llm_connected", true, time.Minute))
			v, ok := c.Get(ctx, "llm_connected")
			require.True(t, ok)
			assert.Equal(t, true, v)

			require.NoError(t, c.Delete(ctx, "llm_connected"))
			_, ok = c.Get(ctx, "llm_connected")
			assert.False(t, ok)
		})
	}
}

func TestShortExpiration(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []string{"gocache", "lru"} {
		t.Run(typ, func(t *testing.T) {
			c, err := NewCache(Config{Type: typ, Local: localConfig()})
			require.NoError(t, err)
			defer c.Close()

			require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
			time.Sleep(30 * time.Millisecond)
			_, ok := c.Get(ctx, "k")
			assert.False(t, ok)
		})
	}
}

func TestLocalCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalCache(localConfig())
	require.NoError(t, err)

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	_ = c.Set(ctx, "c", 3, 0)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestUnsupportedType(t *testing.T) {
	_, err := NewCache(Config{Type: "memcached"})
	assert.Error(t, err)
}
