package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/events"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/outbox"
)

// SaleRepository persists sales. Save writes the sale's outbox events with the same
// context, so inside a transaction both commit or neither does.
type SaleRepository struct {
	collection   *mongo.Collection
	ledger       *mongo.Collection
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
}

// NewSaleRepository creates a sale repository
func NewSaleRepository(db *mongo.Database, outboxRepo outbox.Repository, eventFactory *cloudevents.EventFactory) *SaleRepository {
	return &SaleRepository{
		collection:   db.Collection(SalesCollection),
		ledger:       db.Collection(LedgerEntriesCollection),
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// Save inserts the sale and its pending events
func (r *SaleRepository) Save(ctx context.Context, sale *domain.Sale) error {
	if _, err := r.collection.InsertOne(ctx, sale); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	outboxEvents, err := events.SaleOutboxEvents(ctx, r.eventFactory, sale)
	if err != nil {
		return err
	}
	if len(outboxEvents) > 0 && r.outboxRepo != nil {
		if err := r.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}

	sale.ClearDomainEvents()
	return nil
}

// FindByID returns the sale with its ledger entry loaded, or nil, nil
func (r *SaleRepository) FindByID(ctx context.Context, tenantID, saleID string) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "saleId": saleID}).Decode(&sale)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	if sale.LedgerEntryID != "" {
		var entry domain.LedgerEntry
		err := r.ledger.FindOne(ctx, bson.M{"tenantId": tenantID, "entryId": sale.LedgerEntryID}).Decode(&entry)
		switch {
		case err == nil:
			sale.LedgerEntry = &entry
		case !errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("failed to load sale ledger entry: %w", err)
		}
	}

	return &sale, nil
}

// FindHistory returns matching sales newest first
func (r *SaleRepository) FindHistory(ctx context.Context, filter domain.SaleFilter) ([]*domain.Sale, error) {
	query := bson.M{"tenantId": filter.TenantID}
	if filter.StudioID != "" {
		query["studioId"] = filter.StudioID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer cursor.Close(ctx)

	sales := make([]*domain.Sale, 0)
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}
	return sales, nil
}

// EnsureIndexes creates the sale indexes
func (r *SaleRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "saleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_sale_id"),
		},
		{
			Keys:    bson.D{{Key: "ledgerEntryId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_ledger_entry"),
		},
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "studioId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_tenant_studio_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create sale indexes: %w", err)
	}
	return nil
}
