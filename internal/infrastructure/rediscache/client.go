package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/redis/go-redis/v9"
)

const peerRedis = "redis"

// New opens a client and pings it so a bad REDIS_ADDR fails at boot.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, failure.Wrap(failure.KindStoreUnavailable, err, fmt.Sprintf("rediscache: ping %s", addr))
	}
	return rdb, nil
}
