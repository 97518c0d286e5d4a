package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
)

// LedgerRepository is the append-only ledger. It never updates or deletes entries.
type LedgerRepository struct {
	collection *mongo.Collection
}

// NewLedgerRepository creates a ledger repository
func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{collection: db.Collection(LedgerEntriesCollection)}
}

// Append inserts a new entry
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// FindByID returns nil, nil for an unknown entry
func (r *LedgerRepository) FindByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "entryId": entryID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entry: %w", err)
	}
	return &entry, nil
}

// FindHistory returns matching entries newest first
func (r *LedgerRepository) FindHistory(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	query := ledgerQuery(filter)

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*domain.LedgerEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, nil
}

func ledgerQuery(filter domain.LedgerFilter) bson.M {
	query := bson.M{"tenantId": filter.TenantID}
	if filter.StudioID != "" {
		query["studioId"] = filter.StudioID
	}
	if len(filter.Categories) > 0 {
		query["category"] = bson.M{"$in": filter.Categories}
	}

	createdAt := bson.M{}
	if filter.From != nil {
		createdAt["$gte"] = *filter.From
	}
	if filter.To != nil {
		createdAt["$lt"] = *filter.To
	}
	if len(createdAt) > 0 {
		query["createdAt"] = createdAt
	}
	return query
}

// EnsureIndexes creates the ledger indexes
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entryId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_entry_id"),
		},
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "category", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_tenant_category_created"),
		},
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "studioId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_tenant_studio_created"),
		},
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "referenceId", Value: 1}},
			Options: options.Index().SetName("idx_tenant_reference"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}
