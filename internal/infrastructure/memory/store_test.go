package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/outbox"
)

const tenantID = "tenant-1"

func newTestStore() (*Store, *outbox.MemoryRepository) {
	ob := outbox.NewMemoryRepository()
	store := NewStore(cloudevents.NewEventFactory("/pos-ledger-service"), ob)
	store.SeedProduct(domain.Product{ProductID: "P1", TenantID: tenantID, Name: "Towel", Price: domain.MustMoney("5.00"), Active: true})
	store.SeedStock(domain.Stock{TenantID: tenantID, ProductID: "P1", StudioID: "S1", Quantity: 10})
	store.SeedClient(domain.ClientAccount{ClientID: "C1", TenantID: tenantID, Balance: domain.MustMoney("1000.00")})
	return store, ob
}

func completedSale() *domain.Sale {
	sale := domain.NewSale(tenantID, "S1", "", "user-1", domain.PaymentMethodCash)
	sale.AddItem(&domain.Product{ProductID: "P1", Price: domain.MustMoney("5.00")}, 1)
	entry := domain.NewIncomeEntry(tenantID, "S1", "", domain.CategoryRetailSale, sale.TotalAmount, "sale", "user-1")
	sale.AttachLedgerEntry(entry)
	sale.Complete()
	return sale
}

func TestStockRepository_CheckAndDecrement(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	repo := store.Stock()

	remaining, err := repo.CheckAndDecrement(ctx, tenantID, "P1", "S1", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)

	_, err = repo.CheckAndDecrement(ctx, tenantID, "P1", "S1", 7)
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "P1", stockErr.ProductID)
	assert.Equal(t, 7, stockErr.Requested)

	row, err := repo.FindByProductAndStudio(ctx, tenantID, "P1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 6, row.Quantity)

	_, err = repo.CheckAndDecrement(ctx, tenantID, "P1", "unknown-studio", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = repo.CheckAndDecrement(ctx, "other-tenant", "P1", "S1", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestStockRepository_ConcurrentDecrementsNeverOversell(t *testing.T) {
	store, _ := newTestStore()
	repo := store.Stock()

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CheckAndDecrement(context.Background(), tenantID, "P1", "S1", 1); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	row, _ := repo.FindByProductAndStudio(context.Background(), tenantID, "P1", "S1")
	assert.Equal(t, 0, row.Quantity)
}

func TestClientAccountRepository_AdjustBalance(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	repo := store.Clients()

	balance, err := repo.AdjustBalance(ctx, tenantID, "C1", domain.MustMoney("-1010.00"))
	require.NoError(t, err)
	assert.Equal(t, "-10.00", balance.String())

	_, err = repo.AdjustBalance(ctx, tenantID, "missing", domain.MustMoney("1.00"))
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	client, err := repo.FindByID(ctx, "other-tenant", "C1")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestStore_RunInTransaction_RollsBackOnError(t *testing.T) {
	store, ob := newTestStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTransaction(ctx, func(txCtx context.Context) error {
		_, err := store.Stock().CheckAndDecrement(txCtx, tenantID, "P1", "S1", 3)
		require.NoError(t, err)
		_, err = store.Clients().AdjustBalance(txCtx, tenantID, "C1", domain.MustMoney("-10.00"))
		require.NoError(t, err)

		sale := completedSale()
		require.NoError(t, store.Ledger().Append(txCtx, sale.LedgerEntry))
		require.NoError(t, store.Sales().Save(txCtx, sale))
		return boom
	})
	require.ErrorIs(t, err, boom)

	row, _ := store.Stock().FindByProductAndStudio(ctx, tenantID, "P1", "S1")
	assert.Equal(t, 10, row.Quantity)
	client, _ := store.Clients().FindByID(ctx, tenantID, "C1")
	assert.Equal(t, "1000.00", client.Balance.String())

	sales, entries := store.Counts()
	assert.Zero(t, sales)
	assert.Zero(t, entries)
	assert.Zero(t, ob.Len())
}

func TestStore_RunInTransaction_CommitWritesOutbox(t *testing.T) {
	store, ob := newTestStore()
	ctx := context.Background()
	sale := completedSale()

	err := store.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := store.Ledger().Append(txCtx, sale.LedgerEntry); err != nil {
			return err
		}
		return store.Sales().Save(txCtx, sale)
	})
	require.NoError(t, err)
	assert.Empty(t, sale.GetDomainEvents())

	pending, err := ob.FindByAggregateID(ctx, sale.SaleID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, cloudevents.SaleCompleted, pending[0].EventType)
	assert.Equal(t, "pos.sales", pending[0].Topic)

	found, err := store.Sales().FindByID(ctx, tenantID, sale.SaleID)
	require.NoError(t, err)
	require.NotNil(t, found.LedgerEntry)
	assert.Equal(t, sale.LedgerEntryID, found.LedgerEntry.EntryID)
	assert.Equal(t, domain.ReferenceTypeSale, found.LedgerEntry.ReferenceType)
}

func TestStore_RunInTransaction_CancelledContext(t *testing.T) {
	store, _ := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := store.RunInTransaction(ctx, func(txCtx context.Context) error {
		_, err := store.Stock().CheckAndDecrement(txCtx, tenantID, "P1", "S1", 1)
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	row, _ := store.Stock().FindByProductAndStudio(context.Background(), tenantID, "P1", "S1")
	assert.Equal(t, 10, row.Quantity)
}

func TestLedgerRepository_FindHistory(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	repo := store.Ledger()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	add := func(category, studio string, offset time.Duration) *domain.LedgerEntry {
		e := domain.NewIncomeEntry(tenantID, studio, "", category, domain.MustMoney("1.00"), "", "user-1")
		e.CreatedAt = base.Add(offset)
		require.NoError(t, repo.Append(ctx, e))
		return e
	}

	oldest := add(domain.CategoryRetailSale, "S1", 0)
	add(domain.CategoryMembership, "S1", time.Hour)
	middle := add(domain.CategoryManualAdjustment, "S2", 2*time.Hour)
	newest := add(domain.CategoryRetailSale, "S1", 3*time.Hour)

	entries, err := repo.FindHistory(ctx, domain.LedgerFilter{TenantID: tenantID, Categories: domain.RetailCategories})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{newest.EntryID, middle.EntryID, oldest.EntryID},
		[]string{entries[0].EntryID, entries[1].EntryID, entries[2].EntryID})

	from, to := base.Add(time.Hour), base.Add(3*time.Hour)
	entries, err = repo.FindHistory(ctx, domain.LedgerFilter{TenantID: tenantID, Categories: domain.RetailCategories, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, middle.EntryID, entries[0].EntryID)

	entries, err = repo.FindHistory(ctx, domain.LedgerFilter{TenantID: tenantID, StudioID: "S1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, newest.EntryID, entries[0].EntryID)
}
