package cache

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewIdempotencyStore(t *testing.T) {
	t.Run("redis client is shared", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
		defer client.Close()
		store, err := NewIdempotencyStore(client, true, zap.NewNop())
		require.NoError(t, err)
		rs, ok := store.(*RedisIdempotencyStore)
		require.True(t, ok)
		assert.Same(t, client, rs.client)
		assert.NoError(t, store.Close(), "the caller keeps the client")
	})

	t.Run("falls back to memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(nil, false, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.NoError(t, store.Close())
	})

	t.Run("production refuses the fallback", func(t *testing.T) {
		_, err := NewIdempotencyStore(nil, true, zap.NewNop())
		assert.ErrorIs(t, err, ErrSharedStoreRequired)
	})
}
