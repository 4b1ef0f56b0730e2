package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/pkg/logger"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewFromClient(client, logger.Nop()), mr
}

func TestRedisCache_GetSetDel(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	val, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	val, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Del(ctx, "k"))
	val, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	assert.NoError(t, c.Health(ctx))
}

func TestRedisCache_DelIfValue(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := c.DelIfValue(ctx, "lock", "token-b")
	require.NoError(t, err)
	assert.False(t, deleted, "foreign token must not release")
	assert.True(t, mr.Exists("lock"))

	deleted, err = c.DelIfValue(ctx, "lock", "token-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists("lock"))
}

func TestLocker_Exclusive(t *testing.T) {
	c, _ := setupRedis(t)
	locker := NewLocker(c, time.Minute, 60*time.Millisecond)
	ctx := context.Background()
	key := PlayKey(1, 2)
	assert.Equal(t, "play:1:2", key)

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	assert.True(t, errors.Is(err, apperr.ErrLockBusy))

	release()
	release()

	again, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	again()
}

func TestLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	c, mr := setupRedis(t)
	locker := NewLocker(c, time.Second, 0)
	ctx := context.Background()
	key := PlayKey(3, 4)

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists(key), "stale release must keep the new holder's lock")

	second()
	assert.False(t, mr.Exists(key))
}

func TestLocker_WaitsForRelease(t *testing.T) {
	c, _ := setupRedis(t)
	locker := NewLocker(c, time.Minute, time.Second)
	ctx := context.Background()
	key := PlayKey(5, 6)

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	next, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	next()
}
