package rediscache

import (
	"context"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/redis/go-redis/v9"
)

// IdempotencyStore claims purchase idempotency keys with SET NX so that two
// requests carrying the same key cannot both reach the ledger.
type IdempotencyStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIdempotencyStore(rdb redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, purchaserID, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, idemKey(purchaserID, key), "1", s.ttl).Result()
	if err != nil {
		return false, failure.Wrap(failure.KindStoreUnavailable, err, "rediscache: reserve idempotency key")
	}
	return ok, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, purchaserID, key string) error {
	if err := s.rdb.Del(ctx, idemKey(purchaserID, key)).Err(); err != nil {
		return failure.Wrap(failure.KindStoreUnavailable, err, "rediscache: release idempotency key")
	}
	return nil
}
