package handler

import (
	"fmt"

	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/deppfellow/go-catalog/internal/server"
	"github.com/deppfellow/go-catalog/internal/service"
	"github.com/labstack/echo/v4"
)

// ProductHandler exposes the catalog over /api/products.
type ProductHandler struct {
	Handler
	productService *service.ProductService
}

// NewProductHandler builds the handler; routes are registered in the router
// package through Handle, HandleCreated and HandleNoContent.
func NewProductHandler(s *server.Server, productService *service.ProductService) *ProductHandler {
	return &ProductHandler{
		Handler:        NewHandler(s),
		productService: productService,
	}
}

// ProductLocation is the URI of a product resource.
func ProductLocation(p *product.Product) string {
	return fmt.Sprintf("/api/products/%d", p.ID)
}

// List serves GET /api/products.
func (h *ProductHandler) List(c echo.Context, req *ListProductsRequest) ([]product.Product, error) {
	return h.productService.ListActive(c.Request().Context())
}

// Get serves GET /api/products/:id. An unknown or deleted id is a 404.
func (h *ProductHandler) Get(c echo.Context, req *GetProductRequest) (*product.Product, error) {
	return h.productService.Get(c.Request().Context(), req.ID)
}

// Create serves POST /api/products.
func (h *ProductHandler) Create(c echo.Context, req *CreateProductRequest) (*product.Product, error) {
	return h.productService.Create(c.Request().Context(), req.Fields())
}

// Update serves PUT /api/products/:id and answers 204; the stored row is
// discarded.
func (h *ProductHandler) Update(c echo.Context, req *UpdateProductRequest) error {
	_, err := h.productService.Update(c.Request().Context(), req.ID, req.Fields())
	return err
}

func (h *ProductHandler) Delete(c echo.Context, req *DeleteProductRequest) error {
	return h.productService.Delete(c.Request().Context(), req.ID)
}

// Search serves GET /api/products/search?name=.
func (h *ProductHandler) Search(c echo.Context, req *SearchProductsRequest) ([]product.Product, error) {
	return h.productService.SearchByName(c.Request().Context(), req.Name)
}

// PriceRange serves GET /api/products/price-range?minPrice=&maxPrice=.
func (h *ProductHandler) PriceRange(c echo.Context, req *PriceRangeRequest) ([]product.Product, error) {
	return h.productService.GetByPriceRange(c.Request().Context(), req.MinPrice, req.MaxPrice)
}
