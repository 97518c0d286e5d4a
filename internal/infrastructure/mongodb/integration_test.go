//go:build integration

package mongodb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOhammedRiaad/EMS-sub006/internal/application"
	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/mongodb"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	sharedErrors "github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/metrics"
	testhelpers "github.com/MOhammedRiaad/EMS-sub006/pkg/testing"
)

const tenantID = "tenant-1"

func setup(t *testing.T) (*mongodb.Repositories, *application.SaleService) {
	t.Helper()

	db := testhelpers.SetupMongoDatabase(t, "pos_ledger_test")
	repos := mongodb.NewRepositories(db, cloudevents.NewEventFactory("/pos-ledger-service"), 5*time.Second)

	ctx, cancel := testhelpers.CreateTestContext(30 * time.Second)
	defer cancel()
	require.NoError(t, repos.EnsureIndexes(ctx))

	require.NoError(t, repos.Products.Upsert(ctx, &domain.Product{ProductID: "P1", TenantID: tenantID, Name: "Grip socks", Price: domain.MustMoney("5.00"), Active: true}))
	require.NoError(t, repos.Stock.SetQuantity(ctx, tenantID, "P1", "S1", 10))
	require.NoError(t, repos.Clients.Upsert(ctx, &domain.ClientAccount{ClientID: "C1", TenantID: tenantID, Balance: domain.MustMoney("1000.00")}))

	service := application.NewSaleService(application.Dependencies{
		Transactions: repos.Transactions,
		Products:     repos.Products,
		Stock:        repos.Stock,
		Clients:      repos.Clients,
		Ledger:       repos.Ledger,
		Sales:        repos.Sales,
		Logger:       logging.NewNop(),
		Metrics:      metrics.New(metrics.DefaultConfig("integration")),
	}, application.Config{MaxAttempts: 5, RetryBackoff: 10 * time.Millisecond})

	return repos, service
}

func saleCommand(method, clientID string, quantity int) application.CreateSaleCommand {
	return application.CreateSaleCommand{
		TenantID:      tenantID,
		ActorID:       "user-1",
		StudioID:      "S1",
		ClientID:      clientID,
		PaymentMethod: method,
		Items:         []application.SaleLineInput{{ProductID: "P1", Quantity: quantity}},
	}
}

func TestIntegration_OnAccountSaleCommitsAllWrites(t *testing.T) {
	repos, service := setup(t)
	ctx := context.Background()

	sale, err := service.CreateSale(ctx, saleCommand("on_account", "C1", 2))
	require.NoError(t, err)
	assert.Equal(t, "10.00", sale.TotalAmount)
	require.NotNil(t, sale.LedgerEntry.RunningBalance)
	assert.Equal(t, "990.00", *sale.LedgerEntry.RunningBalance)

	stock, err := repos.Stock.FindByProductAndStudio(ctx, tenantID, "P1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 8, stock.Quantity)

	account, err := repos.Clients.FindByID(ctx, tenantID, "C1")
	require.NoError(t, err)
	assert.Equal(t, "990.00", account.Balance.String())

	stored, err := repos.Sales.FindByID(ctx, tenantID, sale.SaleID)
	require.NoError(t, err)
	require.NotNil(t, stored.LedgerEntry)
	assert.Equal(t, "-10.00", stored.LedgerEntry.Amount.String())

	events, err := repos.Outbox.FindByAggregateID(ctx, sale.SaleID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestIntegration_InsufficientStockRollsBack(t *testing.T) {
	repos, service := setup(t)
	ctx := context.Background()

	_, err := service.CreateSale(ctx, saleCommand("on_account", "C1", 11))
	var appErr *sharedErrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, sharedErrors.CodeInsufficientStock, appErr.Code)

	stock, err := repos.Stock.FindByProductAndStudio(ctx, tenantID, "P1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 10, stock.Quantity)

	account, err := repos.Clients.FindByID(ctx, tenantID, "C1")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", account.Balance.String())

	history, err := repos.Ledger.FindHistory(ctx, domain.LedgerFilter{TenantID: tenantID})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestIntegration_ConcurrentLastUnit(t *testing.T) {
	repos, service := setup(t)
	ctx := context.Background()
	require.NoError(t, repos.Stock.SetQuantity(ctx, tenantID, "P1", "S1", 1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.CreateSale(ctx, saleCommand("card", "", 1))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var appErr *sharedErrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, sharedErrors.CodeInsufficientStock, appErr.Code)
	}
	assert.Equal(t, 1, succeeded)

	stock, err := repos.Stock.FindByProductAndStudio(ctx, tenantID, "P1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Quantity)

	sales, err := repos.Sales.FindHistory(ctx, domain.SaleFilter{TenantID: tenantID})
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}
