package cloudevents

import (
	"time"
)

// Event types emitted by the POS ledger service
const (
	SaleCompleted = "pos.sale.completed"
	AuditRecorded = "pos.audit.recorded"
)

// SpecVersion is the CloudEvents version written by the factory
const SpecVersion = "1.0"

// POSCloudEvent is a CloudEvents 1.0 envelope with the platform's extension attributes
type POSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	Extensions      map[string]interface{} `json:"extensions,omitempty"`

	// Platform extensions
	TenantID      string `json:"tenantid,omitempty"`
	StudioID      string `json:"studioid,omitempty"`
	CorrelationID string `json:"correlationid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}

// SaleCompletedData is the payload of pos.sale.completed
type SaleCompletedData struct {
	SaleID        string    `json:"saleId"`
	StudioID      string    `json:"studioId,omitempty"`
	ClientID      string    `json:"clientId,omitempty"`
	SellerID      string    `json:"sellerId"`
	PaymentMethod string    `json:"paymentMethod"`
	TotalAmount   string    `json:"totalAmount"`
	LedgerEntryID string    `json:"ledgerEntryId"`
	ItemCount     int       `json:"itemCount"`
	CompletedAt   time.Time `json:"completedAt"`
}

// AuditRecordedData is the payload of pos.audit.recorded
type AuditRecordedData struct {
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	ActorID    string                 `json:"actorId"`
	Details    map[string]interface{} `json:"details,omitempty"`
}
