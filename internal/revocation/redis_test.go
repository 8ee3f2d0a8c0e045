package revocation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestRedisRevokeAndLookup(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(time.Hour)))

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists(keyPrefix+Key("tok")))

	revoked, err = store.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisEntryExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(10*time.Second)))
	mr.FastForward(11 * time.Second)

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevokeExpiredIsNoop(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedis(t)

	require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists(keyPrefix+Key("tok")))
}

func TestRedisClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedis(t)

	for i := 0; i < 450; i++ {
		require.NoError(t, store.Revoke(ctx, fmt.Sprintf("tok-%d", i), time.Now().Add(time.Hour)))
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, store.Clear(ctx))

	revoked, err := store.IsRevoked(ctx, "tok-7")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisErrorsSurface(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedis(client)
	mr.Close()

	_, err = store.IsRevoked(ctx, "tok")
	assert.Error(t, err)
	assert.Error(t, store.Revoke(ctx, "tok", time.Now().Add(time.Hour)))
}
