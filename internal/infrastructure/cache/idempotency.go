package cache

import (
	"errors"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrSharedStoreRequired is returned when Redis is mandatory but not connected
var ErrSharedStoreRequired = errors.New("idempotency needs Redis when more than one instance may run")

// NewIdempotencyStore shares client when it is connected. Without Redis it
// falls back to a process-local store unless requireShared is set, because
// a Stripe retry landing on another replica would then be handled twice.
func NewIdempotencyStore(client *redis.Client, requireShared bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if client != nil {
		logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(client, DefaultIdempotencyKeyPrefix), nil
	}
	if requireShared {
		return nil, ErrSharedStoreRequired
	}
	logger.Warn("Redis not connected, idempotency marks are local to this process")
	return NewInMemoryIdempotencyStore(), nil
}
