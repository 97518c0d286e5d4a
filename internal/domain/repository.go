package domain

import (
	"context"
	"time"
)

// TransactionManager runs fn as one atomic unit of work. Repository calls made with
// txCtx take part in the transaction; fn returning an error rolls everything back.
// Implementations report serialization failures as ErrConflict.
type TransactionManager interface {
	RunInTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ProductRepository is the read side of the catalog
type ProductRepository interface {
	// FindByID returns nil, nil when the product does not exist in the tenant
	FindByID(ctx context.Context, tenantID, productID string) (*Product, error)
}

// StockRepository owns per-studio stock rows
type StockRepository interface {
	// CheckAndDecrement removes quantity units if at least that many are on hand and returns
	// the new quantity. A missing row counts as zero. On shortfall it returns an
	// *InsufficientStockError and changes nothing.
	CheckAndDecrement(ctx context.Context, tenantID, productID, studioID string, quantity int) (int, error)

	// FindByProductAndStudio returns nil, nil when no row exists
	FindByProductAndStudio(ctx context.Context, tenantID, productID, studioID string) (*Stock, error)
}

// ClientAccountRepository owns client balances
type ClientAccountRepository interface {
	// FindByID returns nil, nil when the client does not exist in the tenant
	FindByID(ctx context.Context, tenantID, clientID string) (*ClientAccount, error)

	// AdjustBalance atomically adds delta to the balance and returns the new balance.
	// There is no floor.
	AdjustBalance(ctx context.Context, tenantID, clientID string, delta Money) (Money, error)
}

// LedgerRepository is the append-only ledger
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	FindByID(ctx context.Context, tenantID, entryID string) (*LedgerEntry, error)
	// FindHistory returns entries newest first
	FindHistory(ctx context.Context, filter LedgerFilter) ([]*LedgerEntry, error)
}

// SaleRepository persists sale aggregates together with their pending domain events
type SaleRepository interface {
	Save(ctx context.Context, sale *Sale) error
	FindByID(ctx context.Context, tenantID, saleID string) (*Sale, error)
	// FindHistory returns sales newest first
	FindHistory(ctx context.Context, filter SaleFilter) ([]*Sale, error)
}

// SaleFilter scopes a sale history query
type SaleFilter struct {
	TenantID string
	StudioID string
	Limit    int
}

// LedgerFilter scopes a ledger history query. From is inclusive, To exclusive.
type LedgerFilter struct {
	TenantID   string
	StudioID   string
	Categories []string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// Matches applies the filter to a single entry
func (f LedgerFilter) Matches(e *LedgerEntry) bool {
	if e.TenantID != f.TenantID {
		return false
	}
	if f.StudioID != "" && e.StudioID != f.StudioID {
		return false
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if c == e.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

// Matches applies the filter to a single sale
func (f SaleFilter) Matches(s *Sale) bool {
	if s.TenantID != f.TenantID {
		return false
	}
	return f.StudioID == "" || s.StudioID == f.StudioID
}
