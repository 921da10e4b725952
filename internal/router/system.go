package router

import (
	"github.com/deppfellow/go-catalog/internal/handler"
	"github.com/deppfellow/go-catalog/static"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers the endpoints outside the API surface:
// health, docs UI and the embedded docs assets.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.StaticFS("/static", static.Files)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
