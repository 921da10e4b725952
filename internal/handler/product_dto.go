package handler

import (
	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/deppfellow/go-catalog/internal/validation"
	"github.com/shopspring/decimal"
)

// ListProductsRequest has nothing to bind; it exists so List fits the typed
// Handle pipeline like every other endpoint.
type ListProductsRequest struct{}

func (r *ListProductsRequest) Validate() error {
	return nil
}

// GetProductRequest binds the :id path parameter. echo rejects a
// non-numeric id with 400 before Validate runs.
type GetProductRequest struct {
	ID int64 `param:"id"`
}

func (r *GetProductRequest) Validate() error {
	return validation.Struct(r)
}

// ProductBody is the JSON payload of create and update.
// price accepts a JSON number or a decimal string.
type ProductBody struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" validate:"min=0"`
	StockQuantity int             `json:"stockQuantity" validate:"min=0"`
}

// Fields converts the payload into store input. Range and scale checks on
// price happen in product.Fields.Check.
func (b ProductBody) Fields() product.Fields {
	return product.Fields{
		Name:          b.Name,
		Description:   b.Description,
		Price:         b.Price,
		StockQuantity: b.StockQuantity,
	}
}

type CreateProductRequest struct {
	ProductBody
}

func (r *CreateProductRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateProductRequest is a full replacement: omitted fields are written as
// their zero values.
type UpdateProductRequest struct {
	ID int64 `param:"id" json:"-"`
	ProductBody
}

func (r *UpdateProductRequest) Validate() error {
	return validation.Struct(r)
}

type DeleteProductRequest struct {
	ID int64 `param:"id"`
}

func (r *DeleteProductRequest) Validate() error {
	return validation.Struct(r)
}

// SearchProductsRequest: an absent name matches every active product.
type SearchProductsRequest struct {
	Name string `query:"name"`
}

func (r *SearchProductsRequest) Validate() error {
	return validation.Struct(r)
}

// PriceRangeRequest: absent bounds default to 0.
type PriceRangeRequest struct {
	MinPrice decimal.Decimal `query:"minPrice"`
	MaxPrice decimal.Decimal `query:"maxPrice"`
}

func (r *PriceRangeRequest) Validate() error {
	return validation.Struct(r)
}
