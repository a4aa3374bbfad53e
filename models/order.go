package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

type ShippingAddress struct {
	Name    string `json:"name" bson:"name" binding:"required"`
	Email   string `json:"email" bson:"email" binding:"required,email"`
	Phone   string `json:"phone" bson:"phone" binding:"required"`
	Address string `json:"address" bson:"address" binding:"required"`
	City    string `json:"city" bson:"city" binding:"required"`
	State   string `json:"state" bson:"state" binding:"required"`
	Zip     string `json:"zip" bson:"zip" binding:"required"`
}

type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID            string             `bson:"user_id" json:"user_id"`
	Amount            float64            `bson:"amount" json:"amount"`
	Currency          string             `bson:"currency" json:"currency"`
	Status            string             `bson:"status" json:"status"`
	RazorpayOrderID   string             `bson:"razorpay_order_id,omitempty" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string             `bson:"razorpay_payment_id,omitempty" json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string             `bson:"razorpay_signature,omitempty" json:"-"`
	Receipt           string             `bson:"receipt,omitempty" json:"receipt,omitempty"`
	ShippingAddress   ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	PaidAt            *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// OrderItem snapshots price and name at order time so later catalog changes
// never alter historical orders.
type OrderItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderID   primitive.ObjectID `bson:"order_id" json:"order_id"`
	ProductID string             `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Name      string             `bson:"name" json:"name"`
}

type OrderItemView struct {
	OrderItem
	Image *string `json:"image"`
}

type OrderView struct {
	Order
	Items []OrderItemView `json:"items"`
}

// OrderEvent is published to the event bus on order lifecycle changes.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}
