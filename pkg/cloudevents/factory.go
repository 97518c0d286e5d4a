package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// EventFactory creates CloudEvents stamped with a fixed source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// Source returns the source attribute written on every event
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent creates a new event. The active span, if any, is recorded as traceparent.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType string, subject string, data interface{}) *POSCloudEvent {
	event := &POSCloudEvent{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		event.TraceParent = "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-" + sc.TraceFlags().String()
	}

	return event
}

// CreateSaleCompletedEvent wraps a completed sale for the sales topic
func (f *EventFactory) CreateSaleCompletedEvent(ctx context.Context, tenantID string, data SaleCompletedData) *POSCloudEvent {
	event := f.CreateEvent(ctx, SaleCompleted, "sale/"+data.SaleID, data)
	event.TenantID = tenantID
	event.StudioID = data.StudioID
	return event
}

// CreateAuditEvent wraps an audit record for the audit topic
func (f *EventFactory) CreateAuditEvent(ctx context.Context, tenantID string, data AuditRecordedData) *POSCloudEvent {
	event := f.CreateEvent(ctx, AuditRecorded, data.EntityType+"/"+data.EntityID, data)
	event.TenantID = tenantID
	return event
}
