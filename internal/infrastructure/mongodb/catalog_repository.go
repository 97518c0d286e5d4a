package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
)

// Collection names
const (
	ProductsCollection       = "products"
	StockCollection          = "stock"
	ClientAccountsCollection = "client_accounts"
	LedgerEntriesCollection  = "ledger_entries"
	SalesCollection          = "sales"
)

// ProductRepository reads the catalog
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a product repository
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(ProductsCollection)}
}

// FindByID returns nil, nil when the product is not in the tenant's catalog
func (r *ProductRepository) FindByID(ctx context.Context, tenantID, productID string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "productId": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// Upsert writes a catalog product. Catalog management owns this collection; the
// method exists for seeding and tests.
func (r *ProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"tenantId": product.TenantID, "productId": product.ProductID},
		product,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

// EnsureIndexes creates the catalog indexes
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_tenant_product"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

// StockRepository owns per-studio stock rows
type StockRepository struct {
	collection *mongo.Collection
}

// NewStockRepository creates a stock repository
func NewStockRepository(db *mongo.Database) *StockRepository {
	return &StockRepository{collection: db.Collection(StockCollection)}
}

// CheckAndDecrement applies a conditional $inc so the quantity can never go below zero.
// A missing row and a short row are indistinguishable to the caller.
func (r *StockRepository) CheckAndDecrement(ctx context.Context, tenantID, productID, studioID string, quantity int) (int, error) {
	filter := bson.M{
		"tenantId":  tenantID,
		"productId": productID,
		"studioId":  studioID,
		"quantity":  bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	var row domain.Stock
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, &domain.InsufficientStockError{ProductID: productID, StudioID: studioID, Requested: quantity}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return row.Quantity, nil
}

// FindByProductAndStudio returns nil, nil when no row exists
func (r *StockRepository) FindByProductAndStudio(ctx context.Context, tenantID, productID, studioID string) (*domain.Stock, error) {
	var row domain.Stock
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "productId": productID, "studioId": studioID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock: %w", err)
	}
	return &row, nil
}

// SetQuantity writes an absolute quantity. Used for seeding and tests; sales only decrement.
func (r *StockRepository) SetQuantity(ctx context.Context, tenantID, productID, studioID string, quantity int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"tenantId": tenantID, "productId": productID, "studioId": studioID},
		bson.M{"$set": bson.M{"quantity": quantity, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

// EnsureIndexes creates the stock indexes
func (r *StockRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}, {Key: "studioId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_tenant_product_studio"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create stock indexes: %w", err)
	}
	return nil
}

// ClientAccountRepository owns client balances
type ClientAccountRepository struct {
	collection *mongo.Collection
}

// NewClientAccountRepository creates a client account repository
func NewClientAccountRepository(db *mongo.Database) *ClientAccountRepository {
	return &ClientAccountRepository{collection: db.Collection(ClientAccountsCollection)}
}

// FindByID returns nil, nil when the client is not in the tenant
func (r *ClientAccountRepository) FindByID(ctx context.Context, tenantID, clientID string) (*domain.ClientAccount, error) {
	var account domain.ClientAccount
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "clientId": clientID}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client account: %w", err)
	}
	return &account, nil
}

// AdjustBalance applies delta with a server-side Decimal128 $inc and returns the new balance
func (r *ClientAccountRepository) AdjustBalance(ctx context.Context, tenantID, clientID string, delta domain.Money) (domain.Money, error) {
	update := bson.M{
		"$inc": bson.M{"balance": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	var account domain.ClientAccount
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"tenantId": tenantID, "clientId": clientID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Money{}, domain.NewClientNotFound(clientID)
	}
	if err != nil {
		return domain.Money{}, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return account.Balance, nil
}

// Upsert writes a client account. Used for seeding and tests.
func (r *ClientAccountRepository) Upsert(ctx context.Context, account *domain.ClientAccount) error {
	account.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"tenantId": account.TenantID, "clientId": account.ClientID},
		account,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client account: %w", err)
	}
	return nil
}

// EnsureIndexes creates the client account indexes
func (r *ClientAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_tenant_client"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create client account indexes: %w", err)
	}
	return nil
}
