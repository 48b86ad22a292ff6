// internal/graph/types.go
package graph

import "time"

// CoPurchaseRow links a customer who bought the seed product to another
// product the same customer bought.
type CoPurchaseRow struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
}

// PurchaseSet is the set of products a customer has purchased.
type PurchaseSet struct {
	CustomerID string   `json:"customer_id"`
	ProductIDs []string `json:"product_ids"`
}

// ViewedCategoryRow is one recent view joined to a category of the viewed
// product.
type ViewedCategoryRow struct {
	CategoryID uint   `json:"category_id"`
	ProductID  string `json:"product_id"`
}

// CategoryProductRow is a candidate product in a category together with its
// distinct purchaser count.
type CategoryProductRow struct {
	CategoryID uint   `json:"category_id"`
	ProductID  string `json:"product_id"`
	Purchasers int64  `json:"purchasers"`
}

// RatingEvent is a single RATED edge.
type RatingEvent struct {
	CustomerID string    `json:"customer_id"`
	ProductID  string    `json:"product_id"`
	Score      int       `json:"score"`
	RatedAt    time.Time `json:"rated_at"`
}

// PurchaseEvent is a single PURCHASED edge with its timestamp.
type PurchaseEvent struct {
	CustomerID  string    `json:"customer_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// PathNode is one node on a shortest path, typed by its graph label.
type PathNode struct {
	Kind string `json:"kind"` // product, category, brand
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
