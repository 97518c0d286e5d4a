package outbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/metrics"
)

// EventPublisher delivers a CloudEvent to a topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.POSCloudEvent) error
}

// PublisherConfig holds configuration for the outbox relay
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Retention is how long published events are kept. Zero disables purging.
	Retention time.Duration
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		Retention:    24 * time.Hour,
	}
}

// Stats counts relay outcomes since start
type Stats struct {
	Published int64
	Failed    int64
	Purged    int64
}

// Publisher relays committed outbox events to the broker.
// Events of one aggregate are delivered in creation order: after a failure the
// rest of that aggregate's events wait for the next poll.
type Publisher struct {
	repo     Repository
	producer EventPublisher
	logger   *logging.Logger
	metrics  *metrics.Metrics
	config   PublisherConfig

	running   atomic.Bool
	published atomic.Int64
	failed    atomic.Int64
	purged    atomic.Int64
	lastPurge time.Time
}

// NewPublisher creates an outbox relay. metrics may be nil.
func NewPublisher(repo Repository, producer EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	cfg := *config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		metrics:  m,
		config:   cfg,
	}
}

// Run polls the outbox until ctx is cancelled. It returns an error only when
// the publisher is already running.
func (p *Publisher) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("outbox publisher already running")
	}
	defer p.running.Store(false)

	p.logger.Info("Starting outbox publisher",
		"interval", p.config.PollInterval,
		"batchSize", p.config.BatchSize,
		"retention", p.config.Retention,
	)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stats := p.Stats()
			p.logger.Info("Outbox publisher stopped",
				"published", stats.Published,
				"failed", stats.Failed,
				"purged", stats.Purged,
			)
			return nil
		case <-ticker.C:
			p.Drain(ctx)
			p.purge(ctx)
		}
	}
}

// Drain publishes full batches until the backlog is cleared or a batch makes no
// progress. It returns how many events were delivered.
func (p *Publisher) Drain(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		delivered, fetched := p.processBatch(ctx)
		total += delivered
		if fetched < p.config.BatchSize || delivered == 0 {
			break
		}
	}
	return total
}

// ProcessBatch publishes one batch of pending events and returns how many were delivered
func (p *Publisher) ProcessBatch(ctx context.Context) int {
	delivered, _ := p.processBatch(ctx)
	return delivered
}

func (p *Publisher) processBatch(ctx context.Context) (delivered, fetched int) {
	events, err := p.repo.FindUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return 0, 0
	}
	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(events))
	}

	blocked := make(map[string]bool)
	for _, event := range events {
		if blocked[event.AggregateID] {
			continue
		}

		duration, err := p.publishEvent(ctx, event)
		if p.metrics != nil {
			p.metrics.RecordOutboxPublish(event.EventType, err == nil, duration)
		}
		if err != nil {
			blocked[event.AggregateID] = true
			p.failed.Add(1)
			p.logger.WithError(err).Error("Failed to publish event",
				"eventId", event.ID,
				"eventType", event.EventType,
				"aggregateId", event.AggregateID,
				"tenantId", event.TenantID,
				"retryCount", event.RetryCount+1,
			)
			if p.metrics != nil {
				p.metrics.RecordOutboxRetry(event.EventType)
			}
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to increment retry count", "eventId", event.ID)
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			// The event goes out again next poll; consumers dedupe on the CloudEvent id.
			p.logger.WithError(err).Error("Failed to mark event as published", "eventId", event.ID)
			continue
		}
		delivered++
		p.published.Add(1)
	}

	return delivered, len(events)
}

func (p *Publisher) publishEvent(ctx context.Context, event *OutboxEvent) (time.Duration, error) {
	start := time.Now()

	cloudEvent, err := event.ToCloudEvent()
	if err != nil {
		return time.Since(start), fmt.Errorf("failed to decode outbox payload: %w", err)
	}
	if err := p.producer.PublishEvent(ctx, event.Topic, cloudEvent); err != nil {
		return time.Since(start), fmt.Errorf("failed to publish to %s: %w", event.Topic, err)
	}

	duration := time.Since(start)
	p.logger.Debug("Published event from outbox",
		"eventId", event.ID,
		"eventType", event.EventType,
		"topic", event.Topic,
		"aggregateId", event.AggregateID,
		"durationMs", duration.Milliseconds(),
	)
	return duration, nil
}

// purge removes published events past retention, at most once per retention/24
func (p *Publisher) purge(ctx context.Context) {
	if p.config.Retention <= 0 {
		return
	}
	now := time.Now().UTC()
	if !p.lastPurge.IsZero() && now.Sub(p.lastPurge) < p.config.Retention/24 {
		return
	}
	p.lastPurge = now

	deleted, err := p.repo.DeletePublished(ctx, now.Add(-p.config.Retention))
	if err != nil {
		p.logger.WithError(err).Warn("Failed to purge published events")
		return
	}
	if deleted > 0 {
		p.purged.Add(deleted)
		p.logger.Info("Purged published outbox events", "count", deleted)
	}
}

// IsRunning reports whether Run is active
func (p *Publisher) IsRunning() bool {
	return p.running.Load()
}

// Stats returns relay counters
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Purged:    p.purged.Load(),
	}
}
