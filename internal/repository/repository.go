// Package repository handles all interactions with the database.
//
// It owns the catalog item store: one ProductRepository contract and three
// interchangeable implementations of it (raw pgx commands, sqlx struct mapping,
// gorm ORM). Which one runs is a configuration detail; the service layer only
// ever sees the interface.
package repository

import (
	"context"
	"strings"

	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/shopspring/decimal"
)

// ProductRepository is the catalog item store.
//
// Absence is not an error: Get and Update return (nil, nil) and SoftDelete
// returns (false, nil) when no ACTIVE product has the id. Inactive products are
// invisible to every method. Create and Update return *product.ValidationError
// before touching the database when the fields are invalid. Any other error is a
// storage fault, returned wrapped and never retried.
type ProductRepository interface {
	// ListActive returns every active product ordered by name.
	ListActive(ctx context.Context) ([]product.Product, error)

	// Get returns the active product with id, or nil.
	Get(ctx context.Context, id int64) (*product.Product, error)

	// Create inserts a new active product and returns it with its generated id.
	Create(ctx context.Context, fields product.Fields) (*product.Product, error)

	// Update overwrites the mutable fields of an active product and returns the
	// row as stored, or nil when there is no such active product.
	Update(ctx context.Context, id int64, fields product.Fields) (*product.Product, error)

	// SoftDelete deactivates an active product. It reports whether a row changed.
	SoftDelete(ctx context.Context, id int64) (bool, error)

	// SearchByName returns active products whose name contains term,
	// case-insensitively, ordered by name.
	SearchByName(ctx context.Context, term string) ([]product.Product, error)

	// GetByPriceRange returns active products with min <= price <= max ordered by price.
	GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]product.Product, error)
}

// likeEscaper neutralizes LIKE metacharacters; queries use ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term anywhere in a value.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// priceBounds narrows [min, max] onto the cent grid stored prices live on.
// A price is >= min exactly when it is >= min rounded up to a cent, and the
// same holds for max rounded down, so the narrowed range matches the same rows
// and binds exactly on every dialect. ok is false when nothing can match.
func priceBounds(min, max decimal.Decimal) (lo, hi product.Price, ok bool) {
	low := decimal.Max(min.RoundCeil(product.PriceScale), decimal.Zero)
	high := decimal.Min(max.RoundFloor(product.PriceScale), product.MaxPrice)
	if low.GreaterThan(high) {
		return product.Price{}, product.Price{}, false
	}
	return product.NewPrice(low), product.NewPrice(high), true
}
