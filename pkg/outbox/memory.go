package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is a process-local outbox for the memory store driver and tests
type MemoryRepository struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
}

// NewMemoryRepository creates an empty in-memory outbox
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string]*OutboxEvent)}
}

// SaveAll stores copies of the events
func (r *MemoryRepository) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range events {
		cp := *event
		r.events[event.ID] = &cp
	}
	return nil
}

// Remove deletes events by ID. Used to roll back a failed unit of work.
func (r *MemoryRepository) Remove(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.events, id)
	}
}

// FindUnpublished returns pending events oldest first
func (r *MemoryRepository) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*OutboxEvent
	for _, event := range r.events {
		if event.ShouldRetry() {
			cp := *event
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkPublished stamps PublishedAt once
func (r *MemoryRepository) MarkPublished(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	if event.PublishedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	event.PublishedAt = &now
	return nil
}

// IncrementRetry increments the retry count and records the error
func (r *MemoryRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	now := time.Now().UTC()
	event.RetryCount++
	event.LastError = errorMsg
	event.LastAttemptAt = &now
	return nil
}

// DeletePublished deletes events published before the cutoff
func (r *MemoryRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, event := range r.events {
		if event.PublishedAt != nil && event.PublishedAt.Before(before) {
			delete(r.events, id)
			deleted++
		}
	}
	return deleted, nil
}

// FindByAggregateID retrieves all events for a specific aggregate
func (r *MemoryRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []*OutboxEvent
	for _, event := range r.events {
		if event.AggregateID == aggregateID {
			cp := *event
			events = append(events, &cp)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

// Len returns the number of stored events
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
