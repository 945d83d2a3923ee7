package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventprosnz/eventpros-backend/pkg/config"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewFromClient(raw), mr
}

func TestFixedWindowAllowCountsAndResets(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	scope := "privacy_read:ip:10.0.0.1"

	for i := 1; i <= 3; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, scope, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
		assert.EqualValues(t, i, count)
	}

	allowed, count, err := client.FixedWindowAllow(ctx, scope, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.EqualValues(t, 4, count)
	assert.Equal(t, time.Minute, mr.TTL("ep:rate_limit:"+scope))

	mr.FastForward(time.Minute + time.Second)
	allowed, count, err = client.FixedWindowAllow(ctx, scope, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 1, count)
}

func TestFixedWindowAllowKeepsFirstExpiry(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)

	_, _, err := client.FixedWindowAllow(ctx, "login", 10, time.Minute)
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, _, err = client.FixedWindowAllow(ctx, "login", 10, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, mr.TTL("ep:rate_limit:login"))
}

func TestFixedWindowAllowRejectsZeroWindow(t *testing.T) {
	client, _ := newMiniredisClient(t)
	_, _, err := client.FixedWindowAllow(context.Background(), "login", 1, 0)
	assert.Error(t, err)
}

func TestGetMissingKeyIsNil(t *testing.T) {
	client, _ := newMiniredisClient(t)
	_, err := client.Get(context.Background(), client.CacheKey("dashboard", "missing"))
	assert.True(t, IsNil(err), "got %v", err)
}

func TestSetNXAndDeleteIfValue(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	key := client.LockKey("cron")

	ok, err := client.SetNX(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, key, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := client.DeleteIfValue(ctx, key, "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, mr.Exists(key))

	deleted, err = client.DeleteIfValue(ctx, key, "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists(key))
}

func TestDelWithoutKeysIsNoop(t *testing.T) {
	client, _ := newMiniredisClient(t)
	assert.NoError(t, client.Del(context.Background()))
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "ep:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "ep:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "ep:session:access:jti", client.AccessSessionKey("jti"))
	assert.Equal(t, "ep:cache:dashboard:mgr", client.CacheKey("dashboard", "", " mgr "))
	assert.Equal(t, "ep:lock:cron", client.LockKey("cron"))
}

func TestBuildOptions(t *testing.T) {
	_, err := buildOptions(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := buildOptions(config.RedisConfig{URL: "redis://:secret@cache:6380/2", PoolSize: 20, DB: 5})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB, "url db wins over config")
	assert.Equal(t, 20, opts.PoolSize)

	opts, err = buildOptions(config.RedisConfig{Address: "localhost:6379", DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, time.Second, opts.DialTimeout)
}
