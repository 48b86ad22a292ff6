// internal/models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a customer review embedded in the product document.
type Review struct {
	CustomerID string    `json:"customer_id" bson:"customer_id"`
	Rating     int       `json:"rating" bson:"rating"`
	Comment    string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Product is the document-store representation of a catalog product.
// The graph store only mirrors its id; price, stock and attributes live here.
type Product struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Name        string                 `json:"name" bson:"name"`
	Description string                 `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64                `json:"price" bson:"price"`
	Brand       string                 `json:"brand" bson:"brand"`
	CategoryIDs []uint                 `json:"category_ids" bson:"category_ids"`
	Stock       int                    `json:"stock" bson:"stock"`
	Reserved    int                    `json:"reserved" bson:"reserved"`
	Available   int                    `json:"available" bson:"available"`
	Attributes  map[string]interface{} `json:"attributes" bson:"attributes"`
	Reviews     []Review               `json:"reviews" bson:"reviews"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" bson:"updated_at"`
}

// Normalize recomputes derived fields and defaults nil collections.
// Available is never trusted from storage; it is always stock - reserved.
func (p *Product) Normalize() {
	if p.Reserved < 0 {
		p.Reserved = 0
	}
	if p.Reserved > p.Stock {
		p.Reserved = p.Stock
	}
	p.Available = p.Stock - p.Reserved

	if p.Attributes == nil {
		p.Attributes = map[string]interface{}{}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
	if p.CategoryIDs == nil {
		p.CategoryIDs = []uint{}
	}
}

// HexID returns the product id in the form used as graph node id and cache key.
func (p *Product) HexID() string {
	return p.ID.Hex()
}

// ProductPatch carries the updatable fields of a product. Nil means unchanged.
type ProductPatch struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Price       *float64               `json:"price,omitempty"`
	Brand       *string                `json:"brand,omitempty"`
	CategoryIDs []uint                 `json:"category_ids,omitempty"`
	Stock       *int                   `json:"stock,omitempty"`
	Reserved    *int                   `json:"reserved,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

// Apply copies the non-nil patch fields onto the product.
func (patch *ProductPatch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.CategoryIDs != nil {
		p.CategoryIDs = patch.CategoryIDs
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Reserved != nil {
		p.Reserved = *patch.Reserved
	}
	if patch.Attributes != nil {
		p.Attributes = patch.Attributes
	}
}
