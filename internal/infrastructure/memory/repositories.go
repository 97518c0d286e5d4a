package memory

import (
	"context"
	"sort"
	"time"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/events"
)

// ProductRepository reads seeded catalog products
type ProductRepository struct {
	store *Store
}

// FindByID returns nil, nil for an unknown product
func (r *ProductRepository) FindByID(ctx context.Context, tenantID, productID string) (*domain.Product, error) {
	defer r.store.lock(ctx)()

	p, ok := r.store.products[key(tenantID, productID)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// StockRepository holds per-studio quantities
type StockRepository struct {
	store *Store
}

// CheckAndDecrement removes quantity units or fails with *domain.InsufficientStockError
func (r *StockRepository) CheckAndDecrement(ctx context.Context, tenantID, productID, studioID string, quantity int) (int, error) {
	defer r.store.lock(ctx)()

	k := key(tenantID, productID, studioID)
	row, ok := r.store.stock[k]
	if !ok || !row.CanFulfil(quantity) {
		return 0, &domain.InsufficientStockError{ProductID: productID, StudioID: studioID, Requested: quantity}
	}

	row.Quantity -= quantity
	row.UpdatedAt = time.Now().UTC()
	r.store.stock[k] = row
	return row.Quantity, nil
}

// FindByProductAndStudio returns nil, nil when no row exists
func (r *StockRepository) FindByProductAndStudio(ctx context.Context, tenantID, productID, studioID string) (*domain.Stock, error) {
	defer r.store.lock(ctx)()

	row, ok := r.store.stock[key(tenantID, productID, studioID)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// ClientAccountRepository holds client balances
type ClientAccountRepository struct {
	store *Store
}

// FindByID returns nil, nil for an unknown client
func (r *ClientAccountRepository) FindByID(ctx context.Context, tenantID, clientID string) (*domain.ClientAccount, error) {
	defer r.store.lock(ctx)()

	c, ok := r.store.clients[key(tenantID, clientID)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// AdjustBalance adds delta and returns the new balance
func (r *ClientAccountRepository) AdjustBalance(ctx context.Context, tenantID, clientID string, delta domain.Money) (domain.Money, error) {
	defer r.store.lock(ctx)()

	k := key(tenantID, clientID)
	c, ok := r.store.clients[k]
	if !ok {
		return domain.Money{}, domain.NewClientNotFound(clientID)
	}

	c.Balance = c.Balance.Add(delta)
	c.UpdatedAt = time.Now().UTC()
	r.store.clients[k] = c
	return c.Balance, nil
}

// LedgerRepository is the append-only ledger
type LedgerRepository struct {
	store *Store
}

func copyEntry(e domain.LedgerEntry) *domain.LedgerEntry {
	if e.RunningBalance != nil {
		balance := *e.RunningBalance
		e.RunningBalance = &balance
	}
	return &e
}

// Append stores a copy of entry
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	defer r.store.lock(ctx)()

	r.store.ledger = append(r.store.ledger, *copyEntry(*entry))
	return nil
}

// FindByID returns nil, nil for an unknown entry
func (r *LedgerRepository) FindByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error) {
	defer r.store.lock(ctx)()
	return r.store.findEntry(tenantID, entryID), nil
}

func (s *Store) findEntry(tenantID, entryID string) *domain.LedgerEntry {
	for i := range s.ledger {
		if s.ledger[i].EntryID == entryID && s.ledger[i].TenantID == tenantID {
			return copyEntry(s.ledger[i])
		}
	}
	return nil
}

// FindHistory returns matching entries newest first
func (r *LedgerRepository) FindHistory(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	defer r.store.lock(ctx)()

	result := make([]*domain.LedgerEntry, 0)
	for i := len(r.store.ledger) - 1; i >= 0; i-- {
		if filter.Matches(&r.store.ledger[i]) {
			result = append(result, copyEntry(r.store.ledger[i]))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// SaleRepository stores sales and queues their events for the outbox
type SaleRepository struct {
	store *Store
}

func copySale(s domain.Sale) *domain.Sale {
	s.Items = append([]domain.SaleItem(nil), s.Items...)
	s.LedgerEntry = nil
	s.ClearDomainEvents()
	return &s
}

// Save stores the sale. Its domain events are written to the outbox when the
// surrounding transaction commits, or immediately outside one.
func (r *SaleRepository) Save(ctx context.Context, sale *domain.Sale) error {
	outboxEvents, err := events.SaleOutboxEvents(ctx, r.store.eventFactory, sale)
	if err != nil {
		return err
	}

	unlock := r.store.lock(ctx)
	r.store.sales = append(r.store.sales, *copySale(*sale))
	unlock()

	if len(outboxEvents) > 0 {
		if tx := r.store.txFrom(ctx); tx != nil {
			tx.pendingOutbox = append(tx.pendingOutbox, outboxEvents...)
		} else if r.store.outbox != nil {
			if err := r.store.outbox.SaveAll(ctx, outboxEvents); err != nil {
				return err
			}
		}
	}

	sale.ClearDomainEvents()
	return nil
}

// FindByID returns the sale with its ledger entry, or nil, nil
func (r *SaleRepository) FindByID(ctx context.Context, tenantID, saleID string) (*domain.Sale, error) {
	defer r.store.lock(ctx)()

	for i := range r.store.sales {
		s := r.store.sales[i]
		if s.SaleID == saleID && s.TenantID == tenantID {
			sale := copySale(s)
			sale.LedgerEntry = r.store.findEntry(tenantID, sale.LedgerEntryID)
			return sale, nil
		}
	}
	return nil, nil
}

// FindHistory returns matching sales newest first
func (r *SaleRepository) FindHistory(ctx context.Context, filter domain.SaleFilter) ([]*domain.Sale, error) {
	defer r.store.lock(ctx)()

	result := make([]*domain.Sale, 0)
	for i := len(r.store.sales) - 1; i >= 0; i-- {
		if filter.Matches(&r.store.sales[i]) {
			result = append(result, copySale(r.store.sales[i]))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
