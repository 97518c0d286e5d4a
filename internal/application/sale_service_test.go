package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/memory"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	sharedErrors "github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/metrics"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/outbox"
)

const (
	testTenant = "tenant-1"
	testActor  = "user-1"
	testStudio = "S1"
	testSvc    = "pos-ledger-test"
)

type fakeAuditSink struct {
	mu      sync.Mutex
	err     error
	records []domain.AuditRecord
}

func (f *fakeAuditSink) Record(ctx context.Context, record domain.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

// conflictingTransactions fails the first n commits with ErrConflict after fn has run
type conflictingTransactions struct {
	inner     domain.TransactionManager
	conflicts int32
	calls     int32
}

func (c *conflictingTransactions) RunInTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	call := atomic.AddInt32(&c.calls, 1)
	return c.inner.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := fn(txCtx); err != nil {
			return err
		}
		if call <= c.conflicts {
			return fmt.Errorf("commit: %w", domain.ErrConflict)
		}
		return nil
	})
}

type fixture struct {
	store   *memory.Store
	outbox  *outbox.MemoryRepository
	audit   *fakeAuditSink
	metrics *metrics.Metrics
	txs     *conflictingTransactions
	service *SaleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ob := outbox.NewMemoryRepository()
	store := memory.NewStore(cloudevents.NewEventFactory("/pos-ledger-service"), ob)
	store.SeedProduct(domain.Product{ProductID: "P1", TenantID: testTenant, Name: "Grip socks", Price: domain.MustMoney("5.00"), Active: true})
	store.SeedProduct(domain.Product{ProductID: "P2", TenantID: testTenant, Name: "Water", Price: domain.MustMoney("2.50"), Active: true})
	store.SeedProduct(domain.Product{ProductID: "P9", TenantID: "tenant-2", Name: "Other tenant", Price: domain.MustMoney("1.00"), Active: true})
	store.SeedStock(domain.Stock{TenantID: testTenant, ProductID: "P1", StudioID: testStudio, Quantity: 10})
	store.SeedStock(domain.Stock{TenantID: testTenant, ProductID: "P2", StudioID: testStudio, Quantity: 1})
	store.SeedClient(domain.ClientAccount{ClientID: "C1", TenantID: testTenant, Balance: domain.MustMoney("1000.00")})

	f := &fixture{
		store:   store,
		outbox:  ob,
		audit:   &fakeAuditSink{},
		metrics: metrics.New(metrics.DefaultConfig(testSvc)),
		txs:     &conflictingTransactions{inner: store},
	}
	f.service = NewSaleService(Dependencies{
		Transactions: f.txs,
		Products:     store.Products(),
		Stock:        store.Stock(),
		Clients:      store.Clients(),
		Ledger:       store.Ledger(),
		Sales:        store.Sales(),
		Audit:        f.audit,
		Logger:       logging.NewNop(),
		Metrics:      f.metrics,
	}, Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})
	return f
}

func (f *fixture) stockOf(t *testing.T, productID string) int {
	t.Helper()
	row, err := f.store.Stock().FindByProductAndStudio(context.Background(), testTenant, productID, testStudio)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row.Quantity
}

func (f *fixture) balanceOf(t *testing.T, clientID string) string {
	t.Helper()
	account, err := f.store.Clients().FindByID(context.Background(), testTenant, clientID)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.Balance.String()
}

func saleCommand(method, clientID string, lines ...SaleLineInput) CreateSaleCommand {
	return CreateSaleCommand{
		TenantID:      testTenant,
		ActorID:       testActor,
		StudioID:      testStudio,
		ClientID:      clientID,
		PaymentMethod: method,
		Items:         lines,
	}
}

func requireAppError(t *testing.T, err error, code string) *sharedErrors.AppError {
	t.Helper()
	var appErr *sharedErrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestCreateSale_CashSale(t *testing.T) {
	f := newFixture(t)

	sale, err := f.service.CreateSale(context.Background(), saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, "10.00", sale.TotalAmount)
	assert.Equal(t, "cash", sale.PaymentMethod)
	assert.Equal(t, "completed", sale.Status)
	assert.Equal(t, testActor, sale.SellerID)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "5.00", sale.Items[0].UnitPrice)
	assert.Equal(t, "10.00", sale.Items[0].Subtotal)

	require.NotNil(t, sale.LedgerEntry)
	assert.Equal(t, sale.LedgerEntryID, sale.LedgerEntry.EntryID)
	assert.Equal(t, "income", sale.LedgerEntry.Type)
	assert.Equal(t, domain.CategoryRetailSale, sale.LedgerEntry.Category)
	assert.Equal(t, "10.00", sale.LedgerEntry.Amount)
	assert.Nil(t, sale.LedgerEntry.RunningBalance)
	assert.Equal(t, "sale", sale.LedgerEntry.ReferenceType)
	assert.Equal(t, sale.SaleID, sale.LedgerEntry.ReferenceID)

	assert.Equal(t, 8, f.stockOf(t, "P1"))
	assert.Equal(t, 1, f.outbox.Len())

	require.Len(t, f.audit.records, 1)
	record := f.audit.records[0]
	assert.Equal(t, domain.AuditActionSaleCreated, record.Action)
	assert.Equal(t, sale.SaleID, record.EntityID)
	assert.Equal(t, testActor, record.ActorID)
	assert.Equal(t, "10.00", record.Details["amount"])
	assert.Equal(t, "cash", record.Details["paymentMethod"])

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SalesCreated.WithLabelValues(testSvc, "cash")))
}

func TestCreateSale_CardSaleWithClientLeavesBalance(t *testing.T) {
	f := newFixture(t)

	sale, err := f.service.CreateSale(context.Background(), saleCommand("card", "C1",
		SaleLineInput{ProductID: "P1", Quantity: 1},
		SaleLineInput{ProductID: "P2", Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, "7.50", sale.TotalAmount)
	assert.Equal(t, "C1", sale.LedgerEntry.ClientID)
	assert.Equal(t, "7.50", sale.LedgerEntry.Amount)
	assert.Equal(t, "1000.00", f.balanceOf(t, "C1"))
}

func TestCreateSale_OnAccountDebitsClient(t *testing.T) {
	f := newFixture(t)

	sale, err := f.service.CreateSale(context.Background(), saleCommand("on-account", "C1", SaleLineInput{ProductID: "P1", Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, "on_account", sale.PaymentMethod)
	assert.Equal(t, "10.00", sale.TotalAmount)
	require.NotNil(t, sale.LedgerEntry)
	assert.Equal(t, "expense", sale.LedgerEntry.Type)
	assert.Equal(t, "-10.00", sale.LedgerEntry.Amount)
	require.NotNil(t, sale.LedgerEntry.RunningBalance)
	assert.Equal(t, "990.00", *sale.LedgerEntry.RunningBalance)

	assert.Equal(t, "990.00", f.balanceOf(t, "C1"))
}

func TestCreateSale_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateSale(context.Background(), saleCommand("cash", "", SaleLineInput{ProductID: "P2", Quantity: 2}))
	appErr := requireAppError(t, err, sharedErrors.CodeInsufficientStock)
	assert.Equal(t, "P2", appErr.Details["productId"])
	assert.Equal(t, testStudio, appErr.Details["studioId"])

	assert.Equal(t, 1, f.stockOf(t, "P2"))
	sales, entries := f.store.Counts()
	assert.Zero(t, sales)
	assert.Zero(t, entries)
	assert.Zero(t, f.outbox.Len())
	assert.Empty(t, f.audit.records)
}

func TestCreateSale_FailingLaterLineRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateSale(context.Background(), saleCommand("on_account", "C1",
		SaleLineInput{ProductID: "P1", Quantity: 3},
		SaleLineInput{ProductID: "P2", Quantity: 5},
	))
	requireAppError(t, err, sharedErrors.CodeInsufficientStock)

	assert.Equal(t, 10, f.stockOf(t, "P1"))
	assert.Equal(t, 1, f.stockOf(t, "P2"))
	assert.Equal(t, "1000.00", f.balanceOf(t, "C1"))
	sales, entries := f.store.Counts()
	assert.Zero(t, sales)
	assert.Zero(t, entries)
}

func TestCreateSale_OnAccountWithoutClientIsRejectedBeforeStore(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateSale(context.Background(), saleCommand("on_account", "", SaleLineInput{ProductID: "P1", Quantity: 1}))
	requireAppError(t, err, sharedErrors.CodeBadRequest)
	assert.Zero(t, atomic.LoadInt32(&f.txs.calls))
	assert.Equal(t, 10, f.stockOf(t, "P1"))
}

func TestCreateSale_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		cmd  CreateSaleCommand
	}{
		{"empty basket", saleCommand("cash", "")},
		{"zero quantity", saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 0})},
		{"negative quantity", saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: -1})},
		{"missing product id", saleCommand("cash", "", SaleLineInput{Quantity: 1})},
		{"unknown payment method", saleCommand("bitcoin", "", SaleLineInput{ProductID: "P1", Quantity: 1})},
		{"missing studio", CreateSaleCommand{TenantID: testTenant, PaymentMethod: "cash", Items: []SaleLineInput{{ProductID: "P1", Quantity: 1}}}},
		{"missing tenant", CreateSaleCommand{StudioID: testStudio, PaymentMethod: "cash", Items: []SaleLineInput{{ProductID: "P1", Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service.CreateSale(context.Background(), tt.cmd)
			requireAppError(t, err, sharedErrors.CodeBadRequest)
			assert.Zero(t, atomic.LoadInt32(&f.txs.calls))
		})
	}
}

func TestCreateSale_NotFound(t *testing.T) {
	t.Run("unknown client", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.CreateSale(context.Background(), saleCommand("cash", "C404", SaleLineInput{ProductID: "P1", Quantity: 1}))
		appErr := requireAppError(t, err, sharedErrors.CodeNotFound)
		assert.Equal(t, "C404", appErr.Details["id"])
		assert.Equal(t, 10, f.stockOf(t, "P1"))
	})

	t.Run("product of another tenant", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.CreateSale(context.Background(), saleCommand("cash", "",
			SaleLineInput{ProductID: "P1", Quantity: 1},
			SaleLineInput{ProductID: "P9", Quantity: 1},
		))
		appErr := requireAppError(t, err, sharedErrors.CodeNotFound)
		assert.Equal(t, "P9", appErr.Details["id"])
		assert.Equal(t, 10, f.stockOf(t, "P1"))
	})
}

func TestCreateSale_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.service.CreateSale(context.Background(), saleCommand("cash", "", SaleLineInput{ProductID: "P2", Quantity: 1}))
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		requireAppError(t, err, sharedErrors.CodeInsufficientStock)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, f.stockOf(t, "P2"))
}

func TestCreateSale_ManyConcurrentSalesKeepBalanceLinear(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CreateSale(context.Background(), saleCommand("on_account", "C1", SaleLineInput{ProductID: "P1", Quantity: 1}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.stockOf(t, "P1"))
	assert.Equal(t, "950.00", f.balanceOf(t, "C1"))

	entries, err := f.service.GetTransactionHistory(context.Background(), GetTransactionHistoryQuery{TenantID: testTenant})
	require.NoError(t, err)
	require.Len(t, entries, 10)

	want := []string{"995.00", "990.00", "985.00", "980.00", "975.00", "970.00", "965.00", "960.00", "955.00", "950.00"}
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		require.NotNil(t, e.RunningBalance)
		got = append(got, *e.RunningBalance)
	}
	assert.ElementsMatch(t, want, got)
}

func TestCreateSale_RetriesConflicts(t *testing.T) {
	f := newFixture(t)
	f.txs.conflicts = 2

	sale, err := f.service.CreateSale(context.Background(), saleCommand("on_account", "C1", SaleLineInput{ProductID: "P1", Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, "10.00", sale.TotalAmount)

	assert.Equal(t, int32(3), atomic.LoadInt32(&f.txs.calls))
	assert.Equal(t, 8, f.stockOf(t, "P1"))
	assert.Equal(t, "990.00", f.balanceOf(t, "C1"))
	sales, entries := f.store.Counts()
	assert.Equal(t, 1, sales)
	assert.Equal(t, 1, entries)
	assert.Equal(t, 1, f.outbox.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.TransactionRetries.WithLabelValues(testSvc, "create_sale")))
}

func TestCreateSale_RetriesExhaustedIsTransient(t *testing.T) {
	f := newFixture(t)
	f.txs.conflicts = 10

	_, err := f.service.CreateSale(context.Background(), saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 2}))
	appErr := requireAppError(t, err, sharedErrors.CodeTransientFailure)
	assert.Equal(t, 503, appErr.HTTPStatus)

	assert.Equal(t, int32(3), atomic.LoadInt32(&f.txs.calls))
	assert.Equal(t, 10, f.stockOf(t, "P1"))
	sales, _ := f.store.Counts()
	assert.Zero(t, sales)
	assert.Zero(t, f.outbox.Len())
}

func TestCreateSale_AuditFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("audit store down")

	sale, err := f.service.CreateSale(context.Background(), saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 1}))
	require.NoError(t, err)
	assert.NotEmpty(t, sale.SaleID)

	sales, _ := f.store.Counts()
	assert.Equal(t, 1, sales)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AuditFailures.WithLabelValues(testSvc, "audit")))
}

func TestCreateSale_TotalsMatchItems(t *testing.T) {
	f := newFixture(t)

	sale, err := f.service.CreateSale(context.Background(), saleCommand("other", "",
		SaleLineInput{ProductID: "P1", Quantity: 3},
		SaleLineInput{ProductID: "P2", Quantity: 1},
		SaleLineInput{ProductID: "P1", Quantity: 1},
	))
	require.NoError(t, err)

	total := domain.ZeroMoney()
	for _, item := range sale.Items {
		total = total.Add(domain.MustMoney(item.Subtotal))
	}
	assert.Equal(t, total.String(), sale.TotalAmount)
	assert.Equal(t, "22.50", sale.TotalAmount)
	assert.Equal(t, domain.MustMoney(sale.TotalAmount).Abs().String(), domain.MustMoney(sale.LedgerEntry.Amount).Abs().String())
	assert.Equal(t, 6, f.stockOf(t, "P1"))
}

func TestGetSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateSale(ctx, saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 1}))
	require.NoError(t, err)

	found, err := f.service.GetSale(ctx, GetSaleQuery{TenantID: testTenant, SaleID: created.SaleID})
	require.NoError(t, err)
	assert.Equal(t, created.SaleID, found.SaleID)
	require.NotNil(t, found.LedgerEntry)
	assert.Equal(t, created.LedgerEntryID, found.LedgerEntry.EntryID)

	_, err = f.service.GetSale(ctx, GetSaleQuery{TenantID: "tenant-2", SaleID: created.SaleID})
	requireAppError(t, err, sharedErrors.CodeNotFound)
}

func TestGetHistory_NewestFirstAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		sale, err := f.service.CreateSale(ctx, saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 1}))
		require.NoError(t, err)
		ids = append(ids, sale.SaleID)
	}

	history, err := f.service.GetHistory(ctx, GetSaleHistoryQuery{TenantID: testTenant})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].SaleID)
	assert.Equal(t, ids[0], history[2].SaleID)

	limited, err := f.service.GetHistory(ctx, GetSaleHistoryQuery{TenantID: testTenant, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	otherStudio, err := f.service.GetHistory(ctx, GetSaleHistoryQuery{TenantID: testTenant, StudioID: "S2"})
	require.NoError(t, err)
	assert.Empty(t, otherStudio)

	otherTenant, err := f.service.GetHistory(ctx, GetSaleHistoryQuery{TenantID: "tenant-2"})
	require.NoError(t, err)
	assert.NotNil(t, otherTenant)
	assert.Empty(t, otherTenant)
}

func TestGetTransactionHistory_RetailCategoriesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateSale(ctx, saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.service.RecordAdjustment(ctx, RecordAdjustmentCommand{TenantID: testTenant, ActorID: testActor, Amount: "15.00", Description: "till correction"})
	require.NoError(t, err)

	membership := domain.NewIncomeEntry(testTenant, testStudio, "C1", domain.CategoryMembership, domain.MustMoney("80.00"), "monthly", "system")
	require.NoError(t, f.store.Ledger().Append(ctx, membership))

	entries, err := f.service.GetTransactionHistory(ctx, GetTransactionHistoryQuery{TenantID: testTenant})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.CategoryManualAdjustment, entries[0].Category)
	assert.Equal(t, domain.CategoryRetailSale, entries[1].Category)
}

func TestGetTransactionHistory_DateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateSale(ctx, saleCommand("cash", "", SaleLineInput{ProductID: "P1", Quantity: 1}))
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	inRange, err := f.service.GetTransactionHistory(ctx, GetTransactionHistoryQuery{TenantID: testTenant, From: &past, To: &future})
	require.NoError(t, err)
	assert.Len(t, inRange, 1)

	before, err := f.service.GetTransactionHistory(ctx, GetTransactionHistoryQuery{TenantID: testTenant, To: &past})
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = f.service.GetTransactionHistory(ctx, GetTransactionHistoryQuery{TenantID: testTenant, From: &future, To: &past})
	requireAppError(t, err, sharedErrors.CodeBadRequest)
}

func TestRecordAdjustment(t *testing.T) {
	t.Run("credit and debit a client", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		credit, err := f.service.RecordAdjustment(ctx, RecordAdjustmentCommand{
			TenantID: testTenant, ActorID: testActor, ClientID: "C1", Amount: "50.00", Description: "goodwill credit",
		})
		require.NoError(t, err)
		assert.Equal(t, "income", credit.Type)
		assert.Equal(t, domain.CategoryManualAdjustment, credit.Category)
		require.NotNil(t, credit.RunningBalance)
		assert.Equal(t, "1050.00", *credit.RunningBalance)

		debit, err := f.service.RecordAdjustment(ctx, RecordAdjustmentCommand{
			TenantID: testTenant, ActorID: testActor, ClientID: "C1", Amount: "-20.00", Description: "late fee",
		})
		require.NoError(t, err)
		assert.Equal(t, "expense", debit.Type)
		assert.Equal(t, "-20.00", debit.Amount)
		assert.Equal(t, "1030.00", *debit.RunningBalance)
		assert.Equal(t, "1030.00", f.balanceOf(t, "C1"))

		require.Len(t, f.audit.records, 2)
		assert.Equal(t, domain.AuditActionAdjustmentRecorded, f.audit.records[1].Action)
	})

	t.Run("without client has no running balance", func(t *testing.T) {
		f := newFixture(t)
		entry, err := f.service.RecordAdjustment(context.Background(), RecordAdjustmentCommand{
			TenantID: testTenant, ActorID: testActor, StudioID: testStudio, Amount: "-3.00", Description: "float shortfall",
		})
		require.NoError(t, err)
		assert.Nil(t, entry.RunningBalance)
		assert.Equal(t, testStudio, entry.StudioID)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		for _, amount := range []string{"0", "0.00", "abc", ""} {
			_, err := f.service.RecordAdjustment(ctx, RecordAdjustmentCommand{TenantID: testTenant, Amount: amount, Description: "x"})
			requireAppError(t, err, sharedErrors.CodeBadRequest)
		}

		_, err := f.service.RecordAdjustment(ctx, RecordAdjustmentCommand{TenantID: testTenant, Amount: "1.00"})
		requireAppError(t, err, sharedErrors.CodeBadRequest)

		_, err = f.service.RecordAdjustment(ctx, RecordAdjustmentCommand{TenantID: testTenant, ClientID: "C404", Amount: "1.00", Description: "x"})
		requireAppError(t, err, sharedErrors.CodeNotFound)

		_, entries := f.store.Counts()
		assert.Zero(t, entries)
	})
}

func TestToAppError(t *testing.T) {
	assert.Nil(t, toAppError("op", nil))

	existing := sharedErrors.ErrBadRequest("already mapped")
	assert.Same(t, existing, toAppError("op", existing))

	requireAppError(t, toAppError("op", fmt.Errorf("wrapped: %w", context.DeadlineExceeded)), sharedErrors.CodeTimeout)
	requireAppError(t, toAppError("op", errors.New("boom")), sharedErrors.CodeInternalError)
}
