package rediscache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/infrastructure/memory"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type countingCounter struct {
	n     atomic.Int64
	calls atomic.Int32
}

func (c *countingCounter) Count(context.Context) (int64, error) {
	c.calls.Add(1)
	return c.n.Load(), nil
}

func TestCountCacheServesWithinTTL(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	inner := &countingCounter{}
	inner.n.Store(20)
	cache := NewCountCache(rdb, inner, 30*time.Second, nil)

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)

	inner.n.Store(17)
	n, err = cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n, "stale value within ttl")
	assert.Equal(t, int32(1), inner.calls.Load())

	mr.FastForward(31 * time.Second)
	n, err = cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
}

func TestCountCacheFallsBackWhenRedisDown(t *testing.T) {
	mr, rdb := setupRedis(t)
	inner := &countingCounter{}
	inner.n.Store(5)
	cache := NewCountCache(rdb, inner, time.Minute, nil)
	mr.Close()

	n, err := cache.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestCachedRepositoryInvalidatesOnWrites(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	store := memory.NewCatalogRepository()
	repo := NewCachedRepository(store, NewCountCache(rdb, store, time.Hour, nil))

	var ids []string
	for i := 0; i < 20; i++ {
		item, err := catalog.NewFoodItem(catalog.FoodItem{Name: "dish", Quantity: 1})
		require.NoError(t, err)
		id, err := repo.Create(ctx, item)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)

	for _, id := range ids[:3] {
		require.NoError(t, repo.Delete(ctx, id))
	}
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
}

func TestIdempotencyStore(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	store := NewIdempotencyStore(rdb, time.Hour)

	ok, err := store.Reserve(ctx, "Buyer@x.io", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("foodmarket:idem:purchase:buyer@x.io:abc"))

	ok, err = store.Reserve(ctx, "buyer@x.io", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "buyer@x.io", "abc"))
	ok, err = store.Reserve(ctx, "buyer@x.io", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.Close()
	_, err = store.Reserve(ctx, "buyer@x.io", "zzz")
	assert.ErrorIs(t, err, failure.ErrStoreUnavailable)
}

func TestNewFailsOnUnreachableAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, addr)
	assert.True(t, failure.Retryable(err))
}
