package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxQty caps a single cart line.
const MaxQty = 99

type CartItem struct {
	ProductID string `json:"product_id" bson:"product_id" binding:"required"`
	Qty       int    `json:"qty" bson:"qty"`
}

// Cart is the server-side cart, one document per user. Items are written by
// full replace; Seq is a monotonically increasing write version so a stale
// in-flight replace can never overwrite a newer one.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	Seq       int64              `bson:"seq" json:"-"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
