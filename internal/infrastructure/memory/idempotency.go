package memory

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often Reserve scans for expired keys.
const sweepInterval = time.Minute

// IdempotencyStore is the single-process counterpart of the Redis reservation
// store. Keys expire after ttl; a zero ttl keeps them until released.
// Expired keys are evicted by Reserve at most once per sweepInterval.
type IdempotencyStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	keys      map[string]time.Time
	nextSweep time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		ttl:  ttl,
		now:  time.Now,
		keys: make(map[string]time.Time),
	}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, purchaserID, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := idempotencyKey(purchaserID, key)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	if exp, held := s.keys[k]; held && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if s.ttl > 0 {
		exp = now.Add(s.ttl)
	}
	s.keys[k] = exp
	return true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, purchaserID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.keys, idempotencyKey(purchaserID, key))
	s.mu.Unlock()
	return nil
}

func (s *IdempotencyStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	for k, exp := range s.keys {
		if !exp.IsZero() && !now.Before(exp) {
			delete(s.keys, k)
		}
	}
	s.nextSweep = now.Add(sweepInterval)
}
