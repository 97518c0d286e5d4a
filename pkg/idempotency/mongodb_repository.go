package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const idempotencyKeysCollection = "idempotency_keys"

// MongoKeyRepository implements KeyRepository using MongoDB
type MongoKeyRepository struct {
	collection *mongo.Collection
}

// NewMongoKeyRepository creates a new MongoDB-backed key repository
func NewMongoKeyRepository(db *mongo.Database) *MongoKeyRepository {
	return &MongoKeyRepository{collection: db.Collection(idempotencyKeysCollection)}
}

// AcquireLock inserts the key; on a duplicate it returns the stored record,
// taking it over when the previous lock went stale or the record expired.
func (r *MongoKeyRepository) AcquireLock(ctx context.Context, key *IdempotencyKey, lockTimeout time.Duration) (*IdempotencyKey, bool, error) {
	_, err := r.collection.InsertOne(ctx, key)
	if err == nil {
		return key, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to insert idempotency key: %w", err)
	}

	var existing IdempotencyKey
	if err := r.collection.FindOne(ctx, bson.M{"_id": key.ID}).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// reaped between insert and read; the client retries
			return nil, false, fmt.Errorf("idempotency key vanished during acquire: %w", ErrNotFound)
		}
		return nil, false, fmt.Errorf("failed to load idempotency key: %w", err)
	}

	now := time.Now().UTC()
	if !existing.IsStale(now, lockTimeout) && !existing.ExpiresAt.Before(now) {
		return &existing, false, nil
	}

	// Compare-and-swap on the fields we just read so only one caller wins the takeover
	filter := bson.M{"_id": existing.ID, "createdAt": existing.CreatedAt}
	if existing.LockedAt != nil {
		filter["lockedAt"] = *existing.LockedAt
	} else {
		filter["lockedAt"] = bson.M{"$exists": false}
	}

	result, err := r.collection.ReplaceOne(ctx, filter, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to take over idempotency key: %w", err)
	}
	if result.MatchedCount == 0 {
		return &existing, false, nil
	}
	return key, true, nil
}

// ReleaseLock deletes an uncompleted key
func (r *MongoKeyRepository) ReleaseLock(ctx context.Context, keyID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":         keyID,
		"completedAt": bson.M{"$exists": false},
	})
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// StoreResponse stores the final response for a completed request
func (r *MongoKeyRepository) StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": keyID},
		bson.M{
			"$set": bson.M{
				"responseCode":    responseCode,
				"responseBody":    responseBody,
				"responseHeaders": headers,
				"completedAt":     time.Now().UTC(),
			},
			"$unset": bson.M{"lockedAt": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to store idempotency response: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Clean removes expired idempotency keys
func (r *MongoKeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("failed to clean idempotency keys: %w", err)
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the TTL index; _id already enforces uniqueness
func (r *MongoKeyRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
		{
			Keys:    bson.D{{Key: "lockedAt", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_locked"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create idempotency indexes: %w", err)
	}
	return nil
}
