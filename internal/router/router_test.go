package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/deppfellow/go-catalog/internal/config"
	"github.com/deppfellow/go-catalog/internal/database"
	"github.com/deppfellow/go-catalog/internal/errs"
	"github.com/deppfellow/go-catalog/internal/handler"
	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/deppfellow/go-catalog/internal/repository"
	"github.com/deppfellow/go-catalog/internal/server"
	"github.com/deppfellow/go-catalog/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRouter wires the full application on an in-memory sqlite store.
func setupTestRouter(t *testing.T, driver string) *echo.Echo {
	t.Helper()

	cfg := &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			CORSAllowedOrigins: []string{"*"},
		},
		Store: config.StoreConfig{
			Driver:     driver,
			Dialect:    config.DialectSQLite,
			SQLitePath: ":memory:",
		},
		RateLimit:     config.RateLimitConfig{Requests: 100, Window: 60},
		Observability: config.DefaultObservabilityConfig(),
	}

	log := zerolog.Nop()
	db, err := database.New(cfg, &log, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), &log, cfg, db))

	s := server.NewWithDatabase(cfg, &log, db)

	repos, err := repository.NewRepositories(s)
	require.NoError(t, err)

	services, err := service.NewService(s, repos)
	require.NoError(t, err)

	return NewRouter(s, handler.NewHandlers(s, services))
}

func do(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createProduct(t *testing.T, e *echo.Echo, body string) product.Product {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/products", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[product.Product](t, rec)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func productNames(products []product.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestProductAPI(t *testing.T) {
	for _, driver := range []string{config.DriverSQLX, config.DriverGORM} {
		t.Run(driver, func(t *testing.T) {
			runProductAPI(t, driver)
		})
	}
}

func runProductAPI(t *testing.T, driver string) {
	t.Run("create returns 201 with location", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodPost, "/api/products",
			`{"name":"Widget","description":"A widget","price":9.99,"stockQuantity":5}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		created := decode[product.Product](t, rec)
		assert.Positive(t, created.ID)
		assert.Equal(t, "/api/products/"+formatID(created.ID), rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, "Widget", created.Name)
		assert.True(t, created.Price.Equal(decimal.RequireFromString("9.99")))
		assert.True(t, created.IsActive)
		assert.Nil(t, created.UpdatedAt)
		assert.NotContains(t, rec.Body.String(), "updatedAt")
	})

	t.Run("price accepts a decimal string", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		created := createProduct(t, e, `{"name":"Lamp","price":"12.50","stockQuantity":1}`)
		assert.True(t, created.Price.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("price keeps full precision", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		created := createProduct(t, e, `{"name":"Ledger","price":"1234567890123456.78","stockQuantity":1}`)
		assert.Equal(t, "1234567890123456.78", created.Price.String())

		got := decode[product.Product](t, do(t, e, http.MethodGet, "/api/products/"+formatID(created.ID), ""))
		assert.Equal(t, "1234567890123456.78", got.Price.String())
	})

	t.Run("sub-cent price is 400", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodPost, "/api/products", `{"name":"Widget","price":"1.005","stockQuantity":1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[errs.HTTPError](t, rec)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "price", body.Errors[0].Field)

		list := do(t, e, http.MethodGet, "/api/products", "")
		assert.Empty(t, decode[[]product.Product](t, list))
	})

	t.Run("get returns the product", func(t *testing.T) {
		e := setupTestRouter(t, driver)
		created := createProduct(t, e, `{"name":"Widget","price":9.99,"stockQuantity":5}`)

		rec := do(t, e, http.MethodGet, "/api/products/"+formatID(created.ID), "")
		require.Equal(t, http.StatusOK, rec.Code)

		got := decode[product.Product](t, rec)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Widget", got.Name)
	})

	t.Run("get of a missing product is 404", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodGet, "/api/products/42", "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		body := decode[errs.HTTPError](t, rec)
		assert.Equal(t, service.ProductNotFoundCode, body.Code)
		assert.Equal(t, "Product 42 not found", body.Message)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodGet, "/api/products/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body is 400 with field errors", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodPost, "/api/products", `{"name":"","price":-1,"stockQuantity":-3}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[errs.HTTPError](t, rec)
		fields := make([]string, 0, len(body.Errors))
		for _, fe := range body.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"name", "price", "stockQuantity"}, fields)

		list := do(t, e, http.MethodGet, "/api/products", "")
		assert.Empty(t, decode[[]product.Product](t, list))
	})

	t.Run("malformed json is 400", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodPost, "/api/products", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list returns active products by name", func(t *testing.T) {
		e := setupTestRouter(t, driver)
		createProduct(t, e, `{"name":"Widget","price":9.99,"stockQuantity":5}`)
		createProduct(t, e, `{"name":"Anvil","price":50,"stockQuantity":1}`)
		gadget := createProduct(t, e, `{"name":"Gadget","price":20,"stockQuantity":2}`)

		require.Equal(t, http.StatusNoContent,
			do(t, e, http.MethodDelete, "/api/products/"+formatID(gadget.ID), "").Code)

		rec := do(t, e, http.MethodGet, "/api/products", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Anvil", "Widget"}, productNames(decode[[]product.Product](t, rec)))
	})

	t.Run("update is 204 and persists", func(t *testing.T) {
		e := setupTestRouter(t, driver)
		created := createProduct(t, e, `{"name":"Widget","price":9.99,"stockQuantity":5}`)
		path := "/api/products/" + formatID(created.ID)

		rec := do(t, e, http.MethodPut, path,
			`{"name":"Widget Pro","description":"Better","price":12.50,"stockQuantity":3}`)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Empty(t, rec.Body.String())

		got := decode[product.Product](t, do(t, e, http.MethodGet, path, ""))
		assert.Equal(t, "Widget Pro", got.Name)
		assert.Equal(t, "Better", got.Description)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("12.50")))
		assert.Equal(t, 3, got.StockQuantity)
		assert.NotNil(t, got.UpdatedAt)
		assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	})

	t.Run("update of a missing product is 404", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodPut, "/api/products/42", `{"name":"Ghost","price":1,"stockQuantity":1}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, service.ProductNotFoundCode, decode[errs.HTTPError](t, rec).Code)
	})

	t.Run("delete is 204 then 404", func(t *testing.T) {
		e := setupTestRouter(t, driver)
		created := createProduct(t, e, `{"name":"Widget","price":9.99,"stockQuantity":5}`)
		path := "/api/products/" + formatID(created.ID)

		assert.Equal(t, http.StatusNoContent, do(t, e, http.MethodDelete, path, "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodDelete, path, "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodGet, path, "").Code)
	})

	t.Run("search matches names case-insensitively", func(t *testing.T) {
		e := setupTestRouter(t, driver)
		createProduct(t, e, `{"name":"Widget","price":9.99,"stockQuantity":5}`)
		createProduct(t, e, `{"name":"Gadget","price":20,"stockQuantity":2}`)

		rec := do(t, e, http.MethodGet, "/api/products/search?name=WID", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Widget"}, productNames(decode[[]product.Product](t, rec)))

		rec = do(t, e, http.MethodGet, "/api/products/search", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Gadget", "Widget"}, productNames(decode[[]product.Product](t, rec)))
	})

	t.Run("price range filters and orders by price", func(t *testing.T) {
		e := setupTestRouter(t, driver)
		createProduct(t, e, `{"name":"Twenty","price":20,"stockQuantity":1}`)
		createProduct(t, e, `{"name":"Five","price":5,"stockQuantity":1}`)
		createProduct(t, e, `{"name":"Ten","price":"10.00","stockQuantity":1}`)

		rec := do(t, e, http.MethodGet, "/api/products/price-range?minPrice=5&maxPrice=10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Five", "Ten"}, productNames(decode[[]product.Product](t, rec)))

		rec = do(t, e, http.MethodGet, "/api/products/price-range?minPrice=30&maxPrice=10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("non-numeric price bound is 400", func(t *testing.T) {
		e := setupTestRouter(t, driver)

		rec := do(t, e, http.MethodGet, "/api/products/price-range?minPrice=cheap&maxPrice=10", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSystemRoutes(t *testing.T) {
	e := setupTestRouter(t, config.DriverSQLX)

	t.Run("status reports a healthy database", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/status", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "sqlx/sqlite", body["store"])

		checks, ok := body["checks"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, checks, "database")
		assert.NotContains(t, checks, "redis")
	})

	t.Run("docs are served", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/docs", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, e, http.MethodGet, "/static/openapi.json", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, json.Valid(rec.Body.Bytes()))
	})

	t.Run("unknown route is 404", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/nope", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode[errs.HTTPError](t, rec).Code)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})
}
