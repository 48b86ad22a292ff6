// internal/models/category.go
package models

import (
	"time"
)

// Category is the relational-store row that assigns numeric category ids.
// The graph node of the same id is a lazily created cache of id + name.
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
