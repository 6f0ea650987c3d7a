package rediscache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/h4food/foodmarket/internal/domain/catalog"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
	"github.com/redis/go-redis/v9"
)

// CountCache serves catalog counts from Redis for up to ttl. A cached value may
// lag the store by at most ttl; create and delete invalidate it earlier.
// Redis failures fall through to the store.
type CountCache struct {
	rdb   redis.Cmdable
	inner catalog.Counter
	ttl   time.Duration
	log   observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

var _ catalog.Counter = (*CountCache)(nil)

func NewCountCache(rdb redis.Cmdable, inner catalog.Counter, ttl time.Duration, tel observability.Observability) *CountCache {
	tel = observability.OrNop(tel)
	if ttl <= 0 {
		ttl = TTLCount
	}
	return &CountCache{
		rdb:          rdb,
		inner:        inner,
		ttl:          ttl,
		log:          tel.Logger().With(observability.F("component", "count_cache")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

func (c *CountCache) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	raw, err := c.rdb.Get(ctx, KeyCatalogCount).Result()
	switch {
	case err == nil:
		if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			c.observe("hit", start)
			return n, nil
		}
		c.observe("corrupt", start)
	case errors.Is(err, redis.Nil):
		c.observe("miss", start)
	default:
		c.observe("error", start)
		logctx.FromOr(ctx, c.log).Warn("count_cache_read_failed", observability.F("error", err.Error()))
	}

	n, err := c.inner.Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, KeyCatalogCount, n, c.ttl).Err(); err != nil {
		logctx.FromOr(ctx, c.log).Warn("count_cache_write_failed", observability.F("error", err.Error()))
	}
	return n, nil
}

// Invalidate drops the cached value so the next Count reads the store.
func (c *CountCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, KeyCatalogCount).Err(); err != nil {
		logctx.FromOr(ctx, c.log).Warn("count_cache_invalidate_failed", observability.F("error", err.Error()))
	}
}

func (c *CountCache) observe(outcome string, start time.Time) {
	c.extCounter.Add(1,
		observability.L("peer", peerRedis),
		observability.L("endpoint", "catalog.count"),
		observability.L("outcome", outcome),
	)
	c.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peerRedis),
		observability.L("endpoint", "catalog.count"),
	)
}

// CachedRepository routes Count through a CountCache and invalidates it on
// Create and Delete. Everything else goes straight to the store.
type CachedRepository struct {
	catalog.Repository
	cache *CountCache
}

func NewCachedRepository(repo catalog.Repository, cache *CountCache) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: cache}
}

func (r *CachedRepository) Count(ctx context.Context) (int64, error) {
	return r.cache.Count(ctx)
}

func (r *CachedRepository) Create(ctx context.Context, item *catalog.FoodItem) (string, error) {
	id, err := r.Repository.Create(ctx, item)
	if err == nil {
		r.cache.Invalidate(ctx)
	}
	return id, err
}

func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	err := r.Repository.Delete(ctx, id)
	if err == nil {
		r.cache.Invalidate(ctx)
	}
	return err
}
