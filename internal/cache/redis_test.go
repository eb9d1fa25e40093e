package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, server
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		c, _ := setupRedis(t)
		_, err := c.Get(ctx, "wrapped-key:missing")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("value expires with its ttl", func(t *testing.T) {
		c, server := setupRedis(t)
		key := WrappedKeyKey("tok")

		require.NoError(t, c.Set(ctx, key, []byte("wrapped"), time.Minute))
		assert.Equal(t, time.Minute, server.TTL(key))

		value, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("wrapped"), value)

		server.FastForward(time.Minute)
		_, err = c.Get(ctx, key)
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("server error is not a miss", func(t *testing.T) {
		c, server := setupRedis(t)
		server.SetError("ERR unavailable")

		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMiss)
		assert.Error(t, c.Ping(ctx))
	})
}

func TestRedisCache_GetDel(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the value once and removes it", func(t *testing.T) {
		c, server := setupRedis(t)
		key := WrappedKeyKey("tok")
		require.NoError(t, c.Set(ctx, key, []byte("wrapped"), time.Minute))

		value, ok, err := c.GetDel(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("wrapped"), value)
		assert.False(t, server.Exists(key))

		_, ok, err = c.GetDel(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent callers see the value exactly once", func(t *testing.T) {
		c, _ := setupRedis(t)
		key := WrappedKeyKey("race")
		require.NoError(t, c.Set(ctx, key, []byte("wrapped"), time.Minute))

		var hits atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := c.GetDel(ctx, key)
				if err == nil && ok {
					hits.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestRedisCache_IncrementWithTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("window starts at the first increment", func(t *testing.T) {
		c, server := setupRedis(t)
		key := LockKey("tok")

		n, err := c.IncrementWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, time.Minute, server.TTL(key))

		server.FastForward(40 * time.Second)

		n, err = c.IncrementWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, 20*time.Second, server.TTL(key))

		server.FastForward(20 * time.Second)
		assert.False(t, server.Exists(key))

		n, err = c.IncrementWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete resets the counter", func(t *testing.T) {
		c, server := setupRedis(t)
		key := LockKey("tok")

		_, err := c.IncrementWithTTL(ctx, key, time.Hour)
		require.NoError(t, err)
		require.NoError(t, c.Delete(ctx, key))
		assert.False(t, server.Exists(key))

		require.NoError(t, c.Delete(ctx, key))
	})
}
