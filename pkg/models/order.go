package models

import (
	"time"
)

// FieldSet holds the named form values collected for a checkout step.
type FieldSet map[string]string

// Merge copies the values of other into the set, overwriting duplicates.
func (f FieldSet) Merge(other FieldSet) {
	for k, v := range other {
		f[k] = v
	}
}

// OrderRecord is the immutable snapshot produced at successful checkout
// submission.
type OrderRecord struct {
	ID       string     `json:"id"`
	Items    []LineItem `json:"items"`
	Subtotal float64    `json:"subtotal"`
	Shipping float64    `json:"shipping"`
	Tax      float64    `json:"tax"`
	Total    float64    `json:"total"`
	Fields   FieldSet   `json:"fields"`
	PlacedAt time.Time  `json:"placed_at"`
}

// ArchivedOrder is the durable mirror of an OrderRecord.
type ArchivedOrder struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Items     string    `gorm:"type:text" json:"items"` // JSON string
	Subtotal  float64   `gorm:"type:decimal(10,2)" json:"subtotal"`
	Shipping  float64   `gorm:"type:decimal(10,2)" json:"shipping"`
	Tax       float64   `gorm:"type:decimal(10,2)" json:"tax"`
	Total     float64   `gorm:"type:decimal(10,2)" json:"total"`
	Status    string    `gorm:"type:varchar(20);default:'confirmed'" json:"status"`
	PlacedAt  time.Time `json:"placed_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (ArchivedOrder) TableName() string {
	return "orders"
}
