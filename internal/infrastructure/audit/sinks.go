package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/kafka"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/resilience"
)

// DefaultPublishTimeout bounds a single audit publish
const DefaultPublishTimeout = 2 * time.Second

// LogAuditSink writes audit records to the structured log
type LogAuditSink struct {
	logger *logging.Logger
}

// NewLogAuditSink creates a log-backed audit sink
func NewLogAuditSink(logger *logging.Logger) *LogAuditSink {
	return &LogAuditSink{logger: logger}
}

// Name labels the sink in metrics
func (s *LogAuditSink) Name() string { return "log" }

// Record logs the record at info level with audit=true
func (s *LogAuditSink) Record(ctx context.Context, record domain.AuditRecord) error {
	details := make(map[string]any, len(record.Details)+1)
	for k, v := range record.Details {
		details[k] = v
	}
	details["tenantId"] = record.TenantID

	s.logger.Audit(ctx, record.Action, record.EntityType, record.EntityID, record.ActorID, details)
	return nil
}

// KafkaAuditSink publishes audit records as pos.audit.recorded CloudEvents
type KafkaAuditSink struct {
	writer       kafka.EventWriter
	eventFactory *cloudevents.EventFactory
	breaker      *resilience.CircuitBreaker
	timeout      time.Duration
	topic        string
}

// NewKafkaAuditSink creates a Kafka-backed audit sink. A zero timeout uses DefaultPublishTimeout.
func NewKafkaAuditSink(writer kafka.EventWriter, eventFactory *cloudevents.EventFactory, breaker *resilience.CircuitBreaker, timeout time.Duration) *KafkaAuditSink {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &KafkaAuditSink{
		writer:       writer,
		eventFactory: eventFactory,
		breaker:      breaker,
		timeout:      timeout,
		topic:        kafka.Topics.Audit,
	}
}

// Name labels the sink in metrics
func (s *KafkaAuditSink) Name() string { return "kafka" }

// Record publishes through the circuit breaker. When the breaker is open the
// record is dropped and an error wrapping resilience.ErrCircuitOpen is returned.
func (s *KafkaAuditSink) Record(ctx context.Context, record domain.AuditRecord) error {
	event := s.eventFactory.CreateAuditEvent(ctx, record.TenantID, cloudevents.AuditRecordedData{
		Action:     record.Action,
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		ActorID:    record.ActorID,
		Details:    record.Details,
	})
	event.CorrelationID = logging.CorrelationID(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	publish := func(ctx context.Context) error {
		return s.writer.PublishEvent(ctx, s.topic, event)
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to publish audit record: %w", err)
	}
	return nil
}
