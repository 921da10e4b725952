package router

import (
	"net/http"

	"github.com/deppfellow/go-catalog/internal/handler"
	"github.com/labstack/echo/v4"
)

func registerProductRoutes(api *echo.Group, h *handler.Handlers) {
	ph := h.Product
	products := api.Group("/products")

	products.GET("", handler.Handle(ph.Handler, ph.List, http.StatusOK, &handler.ListProductsRequest{}))
	products.POST("", handler.HandleCreated(ph.Handler, ph.Create, handler.ProductLocation, &handler.CreateProductRequest{}))
	products.GET("/search", handler.Handle(ph.Handler, ph.Search, http.StatusOK, &handler.SearchProductsRequest{}))
	products.GET("/price-range", handler.Handle(ph.Handler, ph.PriceRange, http.StatusOK, &handler.PriceRangeRequest{}))
	products.GET("/:id", handler.Handle(ph.Handler, ph.Get, http.StatusOK, &handler.GetProductRequest{}))
	products.PUT("/:id", handler.HandleNoContent(ph.Handler, ph.Update, http.StatusNoContent, &handler.UpdateProductRequest{}))
	products.DELETE("/:id", handler.HandleNoContent(ph.Handler, ph.Delete, http.StatusNoContent, &handler.DeleteProductRequest{}))
}
