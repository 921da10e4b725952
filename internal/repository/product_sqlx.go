package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SQLXProductRepository implements ProductRepository with sqlx: SQL written by
// hand, rows mapped onto product.Product through its `db` tags.
//
// Queries are written with `?` placeholders and rebound for the driver, so the
// same repository runs on PostgreSQL (lib/pq) and SQLite (go-sqlite3).
// On SQLite prices are bound as minor units; product.Price scans both forms.
type SQLXProductRepository struct {
	db         *sqlx.DB
	minorUnits bool
}

// NewSQLXProductRepository builds a store on an open sqlx handle.
func NewSQLXProductRepository(db *sqlx.DB) *SQLXProductRepository {
	return &SQLXProductRepository{
		db:         db,
		minorUnits: db.DriverName() == "sqlite3",
	}
}

// price is the bind value of p for this store's column type.
func (r *SQLXProductRepository) price(p product.Price) any {
	if r.minorUnits {
		return p.MinorUnits()
	}
	return p
}

const sqlxProductColumns = `id, name, description, price, stock_quantity, created_at, updated_at, is_active`

func (r *SQLXProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	return r.selectProducts(ctx, "list products", `
		SELECT `+sqlxProductColumns+`
		FROM products
		WHERE is_active = TRUE
		ORDER BY name, id`)
}

func (r *SQLXProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	query := r.db.Rebind(`
		SELECT ` + sqlxProductColumns + `
		FROM products
		WHERE id = ? AND is_active = TRUE`)

	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	p.Normalize()
	return &p, nil
}

func (r *SQLXProductRepository) Create(ctx context.Context, fields product.Fields) (*product.Product, error) {
	if err := fields.Check(); err != nil {
		return nil, err
	}

	p := &product.Product{
		Name:          fields.Name,
		Description:   fields.Description,
		Price:         product.NewPrice(fields.Price),
		StockQuantity: fields.StockQuantity,
		CreatedAt:     product.Now(),
		IsActive:      true,
	}

	query, args, err := r.db.BindNamed(`
		INSERT INTO products (name, description, price, stock_quantity, created_at, is_active)
		VALUES (:name, :description, :price, :stock_quantity, :created_at, :is_active)
		RETURNING id`, map[string]any{
		"name":           p.Name,
		"description":    p.Description,
		"price":          r.price(p.Price),
		"stock_quantity": p.StockQuantity,
		"created_at":     p.CreatedAt,
		"is_active":      p.IsActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (r *SQLXProductRepository) Update(ctx context.Context, id int64, fields product.Fields) (*product.Product, error) {
	if err := fields.Check(); err != nil {
		return nil, err
	}

	var p product.Product
	query := r.db.Rebind(`
		UPDATE products
		SET name = ?, description = ?, price = ?, stock_quantity = ?, updated_at = ?
		WHERE id = ? AND is_active = TRUE
		RETURNING ` + sqlxProductColumns)

	err := r.db.GetContext(ctx, &p, query,
		fields.Name, fields.Description, r.price(product.NewPrice(fields.Price)), fields.StockQuantity, product.Now(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	p.Normalize()
	return &p, nil
}

func (r *SQLXProductRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	query := r.db.Rebind(`
		UPDATE products
		SET is_active = FALSE, updated_at = ?
		WHERE id = ? AND is_active = TRUE`)

	res, err := r.db.ExecContext(ctx, query, product.Now(), id)
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", id, err)
	}
	return affected > 0, nil
}

func (r *SQLXProductRepository) SearchByName(ctx context.Context, term string) ([]product.Product, error) {
	return r.selectProducts(ctx, "search products", `
		SELECT `+sqlxProductColumns+`
		FROM products
		WHERE is_active = TRUE AND LOWER(name) LIKE LOWER(?) ESCAPE '\'
		ORDER BY name, id`, containsPattern(term))
}

func (r *SQLXProductRepository) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]product.Product, error) {
	lo, hi, ok := priceBounds(min, max)
	if !ok {
		return []product.Product{}, nil
	}
	return r.selectProducts(ctx, "list products by price", `
		SELECT `+sqlxProductColumns+`
		FROM products
		WHERE is_active = TRUE AND price >= ? AND price <= ?
		ORDER BY price, name, id`, r.price(lo), r.price(hi))
}

func (r *SQLXProductRepository) selectProducts(ctx context.Context, op, query string, args ...any) ([]product.Product, error) {
	products := []product.Product{}
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range products {
		products[i].Normalize()
	}
	return products, nil
}
