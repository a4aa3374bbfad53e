package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deepaktraders/storefront-backend/models"
)

// CartRepository stores the authenticated user's cart, one document per user,
// written by full replace-of-items.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	ReplaceItems(ctx context.Context, userID string, items []models.CartItem, seq int64) error
	Clear(ctx context.Context, userID string) error
}

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

// Get returns the user's cart, or nil when the user has none yet.
func (r *MongoCartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ReplaceItems upserts the full item list guarded by seq: the document is only
// written when the stored seq is lower, so an in-flight stale write that lands
// after a newer one is discarded. When the filter matches nothing because the
// stored seq is already higher, the upsert path hits the unique user_id index
// and the duplicate-key error is swallowed as a stale no-op.
func (r *MongoCartRepository) ReplaceItems(ctx context.Context, userID string, items []models.CartItem, seq int64) error {
	if items == nil {
		items = []models.CartItem{}
	}
	filter := bson.M{"user_id": userID, "seq": bson.M{"$lt": seq}}
	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"seq":        seq,
			"updated_at": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{"user_id": userID},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *MongoCartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
