// Package product defines the catalog item record shared by every layer:
// the stores persist it, the service returns it and the handlers render it.
//
// The same struct carries three sets of tags:
//   - `db`   for sqlx struct scanning
//   - `gorm` for the ORM schema and column mapping
//   - `json` for the HTTP representation (camelCase, like the public API)
package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// TableName is the physical table every store reads and writes.
const TableName = "products"

// Product is a catalog item.
//
// Price is fixed-point on every dialect; see Price for the storage forms.
// UpdatedAt is nil until the first mutation (update or soft-delete).
// IsActive flips to false on deletion; rows are never removed.
type Product struct {
	ID            int64           `db:"id" gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `db:"name" gorm:"size:200;not null;index:idx_products_name" json:"name"`
	Description   string          `db:"description" gorm:"not null" json:"description"`
	Price         Price           `db:"price" gorm:"not null" json:"price"`
	StockQuantity int             `db:"stock_quantity" gorm:"not null" json:"stockQuantity"`
	CreatedAt     time.Time       `db:"created_at" gorm:"not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt     *time.Time      `db:"updated_at" gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
	IsActive      bool            `db:"is_active" gorm:"not null;default:true" json:"isActive"`
}

// TableName tells gorm which table backs Product.
func (Product) TableName() string {
	return TableName
}

// Normalize puts timestamps read back from a driver into UTC.
// Drivers hand back times in the connection's location; callers always see UTC.
func (p *Product) Normalize() {
	p.CreatedAt = p.CreatedAt.UTC()
	if p.UpdatedAt != nil {
		t := p.UpdatedAt.UTC()
		p.UpdatedAt = &t
	}
}

// Fields are the mutable attributes of a Product, the input of create and update.
type Fields struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

// Now returns the current instant as stored: UTC, truncated to microseconds
// (the resolution of PostgreSQL timestamptz), so a value handed back by create
// equals the value read back later.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
