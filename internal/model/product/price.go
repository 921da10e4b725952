package product

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// PriceScale is the number of decimal places a price may carry.
const PriceScale = 2

// MaxPrice is the largest price NUMERIC(18,2) can hold.
var MaxPrice = decimal.New(1, 16).Sub(decimal.New(1, -PriceScale))

// Price is a stored catalog price.
//
// PostgreSQL keeps it as NUMERIC(18,2). SQLite has no exact decimal storage
// (a DECIMAL column holds REAL values), so there it lives in an INTEGER column
// as minor units: 9.99 is stored as 999. Both forms compare and order
// numerically in SQL.
type Price struct {
	decimal.Decimal
}

// NewPrice wraps d. Callers check the scale first; see Fields.Check.
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

// PriceFromMinorUnits builds a price from its INTEGER form.
func PriceFromMinorUnits(units int64) Price {
	return Price{Decimal: decimal.New(units, -PriceScale)}
}

// MinorUnits returns the INTEGER form of p. It is exact for any price that
// passed Fields.Check.
func (p Price) MinorUnits() int64 {
	return p.Shift(PriceScale).IntPart()
}

// Scan reads NUMERIC text from PostgreSQL and INTEGER minor units from SQLite.
func (p *Price) Scan(value any) error {
	switch v := value.(type) {
	case int64:
		*p = PriceFromMinorUnits(v)
		return nil
	case float64:
		// A REAL here means the column was written outside this package.
		return fmt.Errorf("price: refusing inexact REAL value %v", v)
	}
	return p.Decimal.Scan(value)
}

// Value binds the decimal text. Stores talking to SQLite bind MinorUnits instead.
func (p Price) Value() (driver.Value, error) {
	return p.Decimal.Value()
}

// GormDBDataType picks the column type gorm migrates for the dialect.
func (Price) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "INTEGER"
	}
	return fmt.Sprintf("NUMERIC(18,%d)", PriceScale)
}

// GormValue binds minor units on SQLite and the decimal everywhere else.
func (p Price) GormValue(_ context.Context, db *gorm.DB) clause.Expr {
	if db.Dialector.Name() == "sqlite" {
		return clause.Expr{SQL: "?", Vars: []any{p.MinorUnits()}}
	}
	return clause.Expr{SQL: "?", Vars: []any{p.Decimal}}
}
