package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryKeyRepository is a process-local KeyRepository for the memory store driver and tests
type MemoryKeyRepository struct {
	mu   sync.Mutex
	keys map[string]*IdempotencyKey
}

// NewMemoryKeyRepository creates an empty repository
func NewMemoryKeyRepository() *MemoryKeyRepository {
	return &MemoryKeyRepository{keys: make(map[string]*IdempotencyKey)}
}

// AcquireLock stores key unless a live record exists
func (r *MemoryKeyRepository) AcquireLock(ctx context.Context, key *IdempotencyKey, lockTimeout time.Duration) (*IdempotencyKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.keys[key.ID]; ok && !existing.IsStale(now, lockTimeout) && !existing.ExpiresAt.Before(now) {
		cp := *existing
		return &cp, false, nil
	}

	cp := *key
	r.keys[key.ID] = &cp
	return key, true, nil
}

// ReleaseLock deletes an uncompleted key
func (r *MemoryKeyRepository) ReleaseLock(ctx context.Context, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.keys[keyID]; ok && !existing.IsCompleted() {
		delete(r.keys, keyID)
	}
	return nil
}

// StoreResponse marks the key completed
func (r *MemoryKeyRepository) StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.keys[keyID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	existing.ResponseCode = responseCode
	existing.ResponseBody = append([]byte(nil), responseBody...)
	existing.ResponseHeaders = headers
	existing.CompletedAt = &now
	existing.LockedAt = nil
	return nil
}

// Clean removes expired keys
func (r *MemoryKeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, k := range r.keys {
		if k.ExpiresAt.Before(before) {
			delete(r.keys, id)
			deleted++
		}
	}
	return deleted, nil
}

// EnsureIndexes is a no-op
func (r *MemoryKeyRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}
