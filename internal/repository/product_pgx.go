package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGXProductRepository implements ProductRepository with hand-written,
// parameterized SQL commands executed through pgx.
type PGXProductRepository struct {
	db DBTX
}

// NewPGXProductRepository builds a store on a pgx pool (or connection, or tx).
func NewPGXProductRepository(db DBTX) *PGXProductRepository {
	return &PGXProductRepository{db: db}
}

const pgxProductColumns = `id, name, description, price, stock_quantity, created_at, updated_at, is_active`

func (r *PGXProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	return r.query(ctx, "list products", `
		SELECT `+pgxProductColumns+`
		FROM products
		WHERE is_active
		ORDER BY name, id`)
}

func (r *PGXProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+pgxProductColumns+`
		FROM products
		WHERE id = $1 AND is_active`, id)

	p, err := scanPGXProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *PGXProductRepository) Create(ctx context.Context, fields product.Fields) (*product.Product, error) {
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

	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock_quantity, created_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id`,
		p.Name, p.Description, p.Price, p.StockQuantity, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (r *PGXProductRepository) Update(ctx context.Context, id int64, fields product.Fields) (*product.Product, error) {
	if err := fields.Check(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock_quantity = $4, updated_at = $5
		WHERE id = $6 AND is_active
		RETURNING `+pgxProductColumns,
		fields.Name, fields.Description, fields.Price, fields.StockQuantity, product.Now(), id)

	p, err := scanPGXProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

func (r *PGXProductRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET is_active = FALSE, updated_at = $1
		WHERE id = $2 AND is_active`, product.Now(), id)
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGXProductRepository) SearchByName(ctx context.Context, term string) ([]product.Product, error) {
	return r.query(ctx, "search products", `
		SELECT `+pgxProductColumns+`
		FROM products
		WHERE is_active AND name ILIKE $1 ESCAPE '\'
		ORDER BY name, id`, containsPattern(term))
}

func (r *PGXProductRepository) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]product.Product, error) {
	lo, hi, ok := priceBounds(min, max)
	if !ok {
		return []product.Product{}, nil
	}
	return r.query(ctx, "list products by price", `
		SELECT `+pgxProductColumns+`
		FROM products
		WHERE is_active AND price >= $1 AND price <= $2
		ORDER BY price, name, id`, lo, hi)
}

// query runs a multi-row select and scans every row. Rows are closed on every path.
func (r *PGXProductRepository) query(ctx context.Context, op, sql string, args ...any) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		p, err := scanPGXProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func scanPGXProduct(row pgx.Row) (*product.Product, error) {
	var p product.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.IsActive,
	); err != nil {
		return nil, err
	}
	p.Normalize()
	return &p, nil
}
