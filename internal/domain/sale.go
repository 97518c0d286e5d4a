package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how a sale is settled
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodOnAccount PaymentMethod = "on_account"
	PaymentMethodOther     PaymentMethod = "other"
)

// ParsePaymentMethod normalizes a wire value. "on-account" and "on_account" are equivalent.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	if !method.IsValid() {
		return "", ErrInvalidPaymentMethod
	}
	return method, nil
}

// IsValid checks if the payment method is known
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnAccount, PaymentMethodOther:
		return true
	}
	return false
}

// ChargesAccount reports whether the sale is deferred against a client balance
func (p PaymentMethod) ChargesAccount() bool {
	return p == PaymentMethodOnAccount
}

// SaleStatus is the lifecycle state of a sale
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// ReferenceTypeSale tags ledger entries produced by a sale
const ReferenceTypeSale = "sale"

// SaleItem is one priced line of a sale. Items are never changed after creation.
type SaleItem struct {
	ProductID   string `bson:"productId" json:"productId"`
	ProductName string `bson:"productName,omitempty" json:"productName,omitempty"`
	Quantity    int    `bson:"quantity" json:"quantity"`
	UnitPrice   Money  `bson:"unitPrice" json:"unitPrice"`
	Subtotal    Money  `bson:"subtotal" json:"subtotal"`
}

// Sale is the aggregate root of a completed basket
type Sale struct {
	SaleID        string        `bson:"saleId" json:"saleId"`
	TenantID      string        `bson:"tenantId" json:"tenantId"`
	StudioID      string        `bson:"studioId,omitempty" json:"studioId,omitempty"`
	ClientID      string        `bson:"clientId,omitempty" json:"clientId,omitempty"`
	SellerID      string        `bson:"sellerId" json:"sellerId"`
	PaymentMethod PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	Status        SaleStatus    `bson:"status" json:"status"`
	TotalAmount   Money         `bson:"totalAmount" json:"totalAmount"`
	Items         []SaleItem    `bson:"items" json:"items"`
	LedgerEntryID string        `bson:"ledgerEntryId" json:"ledgerEntryId"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`

	// LedgerEntry is populated on the returned sale but stored in its own collection.
	LedgerEntry *LedgerEntry `bson:"-" json:"ledgerEntry,omitempty"`

	domainEvents []DomainEvent
}

// NewSaleID generates a sale identifier
func NewSaleID() string {
	return "SALE-" + uuid.NewString()
}

// NewSale starts a completed sale with no items
func NewSale(tenantID, studioID, clientID, sellerID string, method PaymentMethod) *Sale {
	return &Sale{
		SaleID:        NewSaleID(),
		TenantID:      tenantID,
		StudioID:      studioID,
		ClientID:      clientID,
		SellerID:      sellerID,
		PaymentMethod: method,
		Status:        SaleStatusCompleted,
		TotalAmount:   ZeroMoney(),
		Items:         make([]SaleItem, 0),
		CreatedAt:     time.Now().UTC(),
	}
}

// AddItem snapshots the product's current price into a new line and grows the total
func (s *Sale) AddItem(product *Product, quantity int) SaleItem {
	item := SaleItem{
		ProductID:   product.ProductID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
		Subtotal:    product.Subtotal(quantity),
	}
	s.Items = append(s.Items, item)
	s.TotalAmount = s.TotalAmount.Add(item.Subtotal)
	return item
}

// ItemsTotal recomputes Σ subtotal from the items
func (s *Sale) ItemsTotal() Money {
	total := ZeroMoney()
	for _, item := range s.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// AttachLedgerEntry links the sale to the entry it produced
func (s *Sale) AttachLedgerEntry(entry *LedgerEntry) {
	entry.LinkTo(ReferenceTypeSale, s.SaleID)
	s.LedgerEntryID = entry.EntryID
	s.LedgerEntry = entry
}

// Complete records the SaleCompleted event once the ledger link is set
func (s *Sale) Complete() {
	s.addDomainEvent(&SaleCompletedEvent{
		SaleID:        s.SaleID,
		TenantID:      s.TenantID,
		StudioID:      s.StudioID,
		ClientID:      s.ClientID,
		SellerID:      s.SellerID,
		PaymentMethod: string(s.PaymentMethod),
		TotalAmount:   s.TotalAmount.String(),
		LedgerEntryID: s.LedgerEntryID,
		ItemCount:     len(s.Items),
		CompletedAt:   s.CreatedAt,
	})
}

func (s *Sale) addDomainEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (s *Sale) GetDomainEvents() []DomainEvent {
	return s.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (s *Sale) ClearDomainEvents() {
	s.domainEvents = nil
}
