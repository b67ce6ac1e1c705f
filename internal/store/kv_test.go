package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisKV(client), mr
}

func TestRedisKV_SetGet(t *testing.T) {
	kv, _ := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "auth:refresh:user-1:tok-1", "agency-1", time.Minute))

	val, err := kv.Get(ctx, "auth:refresh:user-1:tok-1")
	require.NoError(t, err)
	assert.Equal(t, "agency-1", val)
}

func TestRedisKV_GetMiss(t *testing.T) {
	kv, _ := setupKV(t)

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_TTLExpiry(t *testing.T) {
	kv, mr := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_Del(t *testing.T) {
	kv, _ := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", "1", 0))
	require.NoError(t, kv.Set(ctx, "b", "2", 0))

	require.NoError(t, kv.Del(ctx, "a", "b"))
	require.NoError(t, kv.Del(ctx)) // 空参数是 no-op

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_ScanKeys(t *testing.T) {
	kv, _ := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "auth:refresh:user-1:tok-1", "a", 0))
	require.NoError(t, kv.Set(ctx, "auth:refresh:user-1:tok-2", "a", 0))
	require.NoError(t, kv.Set(ctx, "auth:refresh:user-2:tok-3", "a", 0))

	keys, err := kv.ScanKeys(ctx, "auth:refresh:user-1:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"auth:refresh:user-1:tok-1", "auth:refresh:user-1:tok-2"}, keys)
}
