package application

import "time"

// SaleDTO represents a sale in API responses
type SaleDTO struct {
	SaleID        string          `json:"saleId"`
	TenantID      string          `json:"tenantId"`
	StudioID      string          `json:"studioId,omitempty"`
	ClientID      string          `json:"clientId,omitempty"`
	SellerID      string          `json:"sellerId"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	TotalAmount   string          `json:"totalAmount"`
	Items         []SaleItemDTO   `json:"items"`
	LedgerEntryID string          `json:"ledgerEntryId"`
	LedgerEntry   *LedgerEntryDTO `json:"ledgerEntry,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SaleItemDTO represents a priced sale line
type SaleItemDTO struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

// LedgerEntryDTO represents a ledger entry in API responses
type LedgerEntryDTO struct {
	EntryID        string    `json:"entryId"`
	TenantID       string    `json:"tenantId"`
	StudioID       string    `json:"studioId,omitempty"`
	ClientID       string    `json:"clientId,omitempty"`
	Type           string    `json:"type"`
	Category       string    `json:"category"`
	Amount         string    `json:"amount"`
	RunningBalance *string   `json:"runningBalance,omitempty"`
	ReferenceType  string    `json:"referenceType,omitempty"`
	ReferenceID    string    `json:"referenceId,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}
