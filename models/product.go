package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Price     float64            `json:"price" bson:"price"`
	Image     string             `json:"image" bson:"image"` // blob storage object key
	Category  primitive.ObjectID `json:"category" bson:"category"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// ProductView is a product with its image key resolved to a URL and its
// category id resolved to a name, as returned to clients.
type ProductView struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    *string `json:"image"`
	Category string  `json:"category,omitempty"`
}

type Category struct {
	ID   primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
}

// CategoryPreview is a category with a handful of its newest products.
type CategoryPreview struct {
	Category
	Previews []ProductView `json:"previews"`
}
