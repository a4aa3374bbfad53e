package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deepaktraders/storefront-backend/models"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) (primitive.ObjectID, error)
	InsertItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error)
	ItemsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderItem, error)
	SetGatewayOrder(ctx context.Context, id primitive.ObjectID, razorpayOrderID, receipt string) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, razorpayOrderID, razorpayPaymentID, razorpaySignature string, paidAt time.Time) (bool, error)
	SweepOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

type MongoOrderRepository struct {
	orders *mongo.Collection
	items  *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		orders: db.Collection("orders"),
		items:  db.Collection("order_items"),
	}
}

func (r *MongoOrderRepository) CreateOrder(ctx context.Context, order *models.Order) (primitive.ObjectID, error) {
	res, err := r.orders.InsertOne(ctx, order)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (r *MongoOrderRepository) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		docs = append(docs, item)
	}
	_, err := r.items.InsertMany(ctx, docs)
	return err
}

func (r *MongoOrderRepository) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.orders.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUser returns the user's orders, newest first.
func (r *MongoOrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.orders.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *MongoOrderRepository) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.orders.FindOne(ctx, bson.M{"razorpay_order_id": razorpayOrderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MongoOrderRepository) ItemsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderItem, error) {
	cursor, err := r.items.Find(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.OrderItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetGatewayOrder records the gateway's order id so the verification callback
// can locate the order without trusting a client-supplied internal id.
func (r *MongoOrderRepository) SetGatewayOrder(ctx context.Context, id primitive.ObjectID, razorpayOrderID, receipt string) error {
	res, err := r.orders.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"razorpay_order_id": razorpayOrderID, "receipt": receipt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid transitions a pending order to paid. Returns false when the order
// was not pending (already paid, failed, or missing) and nothing was written.
func (r *MongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, razorpayOrderID, razorpayPaymentID, razorpaySignature string, paidAt time.Time) (bool, error) {
	res, err := r.orders.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.OrderStatusPending},
		bson.M{"$set": bson.M{
			"status":              models.OrderStatusPaid,
			"paid_at":             paidAt,
			"razorpay_order_id":   razorpayOrderID,
			"razorpay_payment_id": razorpayPaymentID,
			"razorpay_signature":  razorpaySignature,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SweepOrphans deletes pending orders older than the cutoff that have no line
// items, compensating for a crash between the order and item inserts.
func (r *MongoOrderRepository) SweepOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	filter := bson.M{
		"status":     models.OrderStatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.orders.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var candidates []models.Order
	if err := cursor.All(ctx, &candidates); err != nil {
		return 0, err
	}

	deleted := 0
	for _, order := range candidates {
		n, err := r.items.CountDocuments(ctx, bson.M{"order_id": order.ID})
		if err != nil {
			return deleted, err
		}
		if n > 0 {
			continue
		}
		if _, err := r.orders.DeleteOne(ctx, bson.M{"_id": order.ID, "status": models.OrderStatusPending}); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
