package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frozenStore returns a store whose clock only moves when advance is called
func frozenStore(t *testing.T) (*InMemoryIdempotencyStore, func(time.Duration)) {
	t.Helper()
	s := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = s.Close() })
	clock := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, func(d time.Duration) { clock = clock.Add(d) }
}

func TestInMemoryIdempotencyStore_MarkUntilExpiry(t *testing.T) {
	s, advance := frozenStore(t)
	ctx := context.Background()
	key := "stripe:evt_1PxDrone"

	first, err := s.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, again, "Stripe retry inside the window is a duplicate")

	seen, _ := s.IsProcessed(ctx, key)
	assert.True(t, seen)

	advance(time.Hour)
	seen, _ = s.IsProcessed(ctx, key)
	assert.False(t, seen, "marks expire exactly at the TTL")

	first, err = s.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestInMemoryIdempotencyStore_Release(t *testing.T) {
	s, _ := frozenStore(t)
	ctx := context.Background()

	_, err := s.MarkProcessed(ctx, "handler:sms:42", time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "handler:sms:42"))
	require.NoError(t, s.Release(ctx, "never-marked"))

	first, err := s.MarkProcessed(ctx, "handler:sms:42", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	s, advance := frozenStore(t)
	ctx := context.Background()
	_, _ = s.MarkProcessed(ctx, "short-1", time.Minute)
	_, _ = s.MarkProcessed(ctx, "short-2", time.Minute)
	_, _ = s.MarkProcessed(ctx, "long", 72*time.Hour)

	assert.Equal(t, 3, s.sweep())
	advance(2 * time.Minute)
	assert.Equal(t, 1, s.sweep())

	seen, _ := s.IsProcessed(ctx, "long")
	assert.True(t, seen)
}

func TestInMemoryIdempotencyStore_OneWinnerUnderContention(t *testing.T) {
	s := NewInMemoryIdempotencyStore()
	defer s.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := s.MarkProcessed(context.Background(), "p24:order-1001", time.Hour); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	s := NewInMemoryIdempotencyStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
