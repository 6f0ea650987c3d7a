package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyReserveOnce(t *testing.T) {
	s := NewIdempotencyStore(time.Hour)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "buyer@example.com", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "BUYER@example.com", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "buyer@example.com", "k"))
	ok, err = s.Reserve(ctx, "buyer@example.com", "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyEvictsExpiredKeys(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewIdempotencyStore(time.Hour)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		ok, err := s.Reserve(ctx, "buyer@example.com", k)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Len(t, s.keys, 3)

	clock = clock.Add(2 * time.Hour)
	ok, err := s.Reserve(ctx, "other@example.com", "d")
	require.NoError(t, err)
	require.True(t, ok)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.keys, 1)
	_, held := s.keys[idempotencyKey("other@example.com", "d")]
	assert.True(t, held)
}
