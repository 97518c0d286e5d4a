package idempotency

import (
	"context"
	"time"
)

// KeyRepository stores idempotency keys. AcquireLock must be atomic.
type KeyRepository interface {
	// AcquireLock inserts key locked, or returns the existing record.
	// acquired is true when the caller now owns the lock; a stale lock older
	// than lockTimeout is taken over.
	AcquireLock(ctx context.Context, key *IdempotencyKey, lockTimeout time.Duration) (record *IdempotencyKey, acquired bool, err error)

	// ReleaseLock drops an uncompleted key so the client may retry
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse marks the key completed with the response to replay
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// Clean removes keys that expired before the cutoff
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes creates the required indexes
	EnsureIndexes(ctx context.Context) error
}
