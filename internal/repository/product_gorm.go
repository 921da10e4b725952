package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GORMProductRepository implements ProductRepository with the gorm ORM.
//
// Mutations go through a transaction so the row handed back by Update is the
// one the same unit of work just wrote.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository builds a store on an open gorm handle.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

// active scopes a query to rows visible through the public contract.
func active(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

func (r *GORMProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	products := []product.Product{}
	err := r.db.WithContext(ctx).
		Scopes(active).
		Order("name").Order("id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return normalizeAll(products), nil
}

func (r *GORMProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	p, err := r.first(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *GORMProductRepository) Create(ctx context.Context, fields product.Fields) (*product.Product, error) {
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

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (r *GORMProductRepository) Update(ctx context.Context, id int64, fields product.Fields) (*product.Product, error) {
	if err := fields.Check(); err != nil {
		return nil, err
	}

	var updated *product.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A map keeps zero values (empty description, zero stock) in the SET list.
		result := tx.Model(&product.Product{}).
			Where("id = ?", id).
			Scopes(active).
			Updates(map[string]any{
				"name":           fields.Name,
				"description":    fields.Description,
				"price":          product.NewPrice(fields.Price),
				"stock_quantity": fields.StockQuantity,
				"updated_at":     product.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		p, err := r.first(tx, id)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return updated, nil
}

func (r *GORMProductRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&product.Product{}).
		Where("id = ?", id).
		Scopes(active).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": product.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("delete product %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GORMProductRepository) SearchByName(ctx context.Context, term string) ([]product.Product, error) {
	products := []product.Product{}
	err := r.db.WithContext(ctx).
		Scopes(active).
		Where(`LOWER(name) LIKE LOWER(?) ESCAPE '\'`, containsPattern(term)).
		Order("name").Order("id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return normalizeAll(products), nil
}

func (r *GORMProductRepository) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]product.Product, error) {
	lo, hi, ok := priceBounds(min, max)
	if !ok {
		return []product.Product{}, nil
	}

	// product.Price binds itself per dialect through GormValue.
	products := []product.Product{}
	err := r.db.WithContext(ctx).
		Scopes(active).
		Where("price >= ? AND price <= ?", lo, hi).
		Order("price").Order("name").Order("id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products by price: %w", err)
	}
	return normalizeAll(products), nil
}

// first loads the active product with id through db, mapping "record not found" to nil.
func (r *GORMProductRepository) first(db *gorm.DB, id int64) (*product.Product, error) {
	var p product.Product
	if err := db.Scopes(active).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	p.Normalize()
	return &p, nil
}

func normalizeAll(products []product.Product) []product.Product {
	for i := range products {
		products[i].Normalize()
	}
	return products
}
