package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	outboxMongo "github.com/MOhammedRiaad/EMS-sub006/pkg/outbox/mongodb"
)

// Repositories bundles every MongoDB-backed port of the engine over one database
type Repositories struct {
	Products     *ProductRepository
	Stock        *StockRepository
	Clients      *ClientAccountRepository
	Ledger       *LedgerRepository
	Sales        *SaleRepository
	Outbox       *outboxMongo.OutboxRepository
	Transactions *TransactionManager
}

// NewRepositories wires the repositories and a transaction manager
func NewRepositories(db *mongo.Database, eventFactory *cloudevents.EventFactory, txTimeout time.Duration) *Repositories {
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	return &Repositories{
		Products:     NewProductRepository(db),
		Stock:        NewStockRepository(db),
		Clients:      NewClientAccountRepository(db),
		Ledger:       NewLedgerRepository(db),
		Sales:        NewSaleRepository(db, outboxRepo, eventFactory),
		Outbox:       outboxRepo,
		Transactions: NewTransactionManager(db.Client(), txTimeout),
	}
}

// EnsureIndexes creates all indexes, stopping at the first failure
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	steps := []func(context.Context) error{
		r.Products.EnsureIndexes,
		r.Stock.EnsureIndexes,
		r.Clients.EnsureIndexes,
		r.Ledger.EnsureIndexes,
		r.Sales.EnsureIndexes,
		r.Outbox.EnsureIndexes,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
