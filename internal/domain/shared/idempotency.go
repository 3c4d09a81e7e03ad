package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (webhook event ids, handler/event pairs).
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been marked
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release removes a mark so that a failed attempt can be retried
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
