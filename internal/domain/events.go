package domain

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event types
const (
	EventTypeSaleCompleted = "pos.sale.completed"
)

// SaleCompletedEvent is emitted when a sale and its ledger entry commit
type SaleCompletedEvent struct {
	SaleID        string    `json:"saleId"`
	TenantID      string    `json:"tenantId"`
	StudioID      string    `json:"studioId,omitempty"`
	ClientID      string    `json:"clientId,omitempty"`
	SellerID      string    `json:"sellerId"`
	PaymentMethod string    `json:"paymentMethod"`
	TotalAmount   string    `json:"totalAmount"`
	LedgerEntryID string    `json:"ledgerEntryId"`
	ItemCount     int       `json:"itemCount"`
	CompletedAt   time.Time `json:"completedAt"`
}

func (e *SaleCompletedEvent) EventType() string     { return EventTypeSaleCompleted }
func (e *SaleCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
