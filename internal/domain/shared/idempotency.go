package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already processed.
// It guards both outbox event delivery and client-supplied Idempotency-Key headers.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so the operation may be attempted again
	Release(ctx context.Context, key string) error

	Close() error
}
