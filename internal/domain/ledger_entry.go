package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType classifies the direction of a ledger entry
type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
	EntryTypeRefund  EntryType = "refund"
)

// Ledger categories. Other subsystems of the studio platform write their own
// categories to the same ledger.
const (
	CategoryRetailSale       = "retail_sale"
	CategoryManualAdjustment = "manual_adjustment"
	CategoryMembership       = "membership"
	CategorySessionPackage   = "session_package"
)

// RetailCategories is the allow-list served by transaction history queries
var RetailCategories = []string{CategoryRetailSale, CategoryManualAdjustment}

// IsRetailCategory reports whether a category belongs to the retail allow-list
func IsRetailCategory(category string) bool {
	for _, c := range RetailCategories {
		if c == category {
			return true
		}
	}
	return false
}

// LedgerEntry is an immutable financial record. Entries are appended, never updated.
type LedgerEntry struct {
	EntryID        string    `bson:"entryId" json:"entryId"`
	TenantID       string    `bson:"tenantId" json:"tenantId"`
	StudioID       string    `bson:"studioId,omitempty" json:"studioId,omitempty"`
	ClientID       string    `bson:"clientId,omitempty" json:"clientId,omitempty"`
	Type           EntryType `bson:"type" json:"type"`
	Category       string    `bson:"category" json:"category"`
	Amount         Money     `bson:"amount" json:"amount"`
	RunningBalance *Money    `bson:"runningBalance,omitempty" json:"runningBalance,omitempty"`
	ReferenceType  string    `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	ReferenceID    string    `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	Description    string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy      string    `bson:"createdBy" json:"createdBy"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// NewLedgerEntryID generates a ledger entry identifier
func NewLedgerEntryID() string {
	return "LE-" + uuid.NewString()
}

// NewIncomeEntry records money received immediately
func NewIncomeEntry(tenantID, studioID, clientID, category string, amount Money, description, createdBy string) *LedgerEntry {
	return &LedgerEntry{
		EntryID:     NewLedgerEntryID(),
		TenantID:    tenantID,
		StudioID:    studioID,
		ClientID:    clientID,
		Type:        EntryTypeIncome,
		Category:    category,
		Amount:      amount.Abs(),
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewAccountDebitEntry records a charge against a client's balance.
// The amount is stored negative and runningBalance is the balance after the charge.
func NewAccountDebitEntry(tenantID, studioID, clientID, category string, amount, runningBalance Money, description, createdBy string) *LedgerEntry {
	balance := runningBalance
	return &LedgerEntry{
		EntryID:        NewLedgerEntryID(),
		TenantID:       tenantID,
		StudioID:       studioID,
		ClientID:       clientID,
		Type:           EntryTypeExpense,
		Category:       category,
		Amount:         amount.Abs().Neg(),
		RunningBalance: &balance,
		Description:    description,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewAdjustmentEntry records a manual signed adjustment. runningBalance is nil when no
// client balance changed.
func NewAdjustmentEntry(tenantID, studioID, clientID string, amount Money, runningBalance *Money, description, createdBy string) *LedgerEntry {
	entryType := EntryTypeIncome
	if amount.IsNegative() {
		entryType = EntryTypeExpense
	}
	return &LedgerEntry{
		EntryID:        NewLedgerEntryID(),
		TenantID:       tenantID,
		StudioID:       studioID,
		ClientID:       clientID,
		Type:           entryType,
		Category:       CategoryManualAdjustment,
		Amount:         amount,
		RunningBalance: runningBalance,
		Description:    description,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}
}

// LinkTo records the entity that produced this entry
func (e *LedgerEntry) LinkTo(referenceType, referenceID string) {
	e.ReferenceType = referenceType
	e.ReferenceID = referenceID
}
