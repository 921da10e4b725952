package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/deppfellow/go-catalog/internal/config"
	"github.com/deppfellow/go-catalog/internal/database"
	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openStore returns an empty, migrated store.
type openStore func(t *testing.T) ProductRepository

func sqliteConfig(driver string) *config.Config {
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Store: config.StoreConfig{
			Driver:     driver,
			Dialect:    config.DialectSQLite,
			SQLitePath: ":memory:",
		},
		Observability: config.DefaultObservabilityConfig(),
	}
}

func openSQLXSQLite(t *testing.T) ProductRepository {
	t.Helper()

	db, err := database.OpenSQLX(sqliteConfig(config.DriverSQLX))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.ApplySQLiteSchema(context.Background(), db))
	return NewSQLXProductRepository(db)
}

func openGORMSQLite(t *testing.T) ProductRepository {
	t.Helper()

	db, err := database.OpenGORM(sqliteConfig(config.DriverGORM), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return NewGORMProductRepository(db)
}

// postgresURL returns TEST_DATABASE_URL after migrating and emptying the
// products table, or skips the test when no database is reachable.
func postgresURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	log := zerolog.Nop()
	if err := database.MigratePostgres(ctx, &log, url); err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, "TRUNCATE products RESTART IDENTITY")
	require.NoError(t, err)

	return url
}

func openPGX(t *testing.T) ProductRepository {
	url := postgresURL(t)

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewPGXProductRepository(pool)
}

func openSQLXPostgres(t *testing.T) ProductRepository {
	url := postgresURL(t)

	db, err := sqlx.Open("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLXProductRepository(db)
}

func openGORMPostgres(t *testing.T) ProductRepository {
	url := postgresURL(t)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewGORMProductRepository(db)
}

func TestProductRepository(t *testing.T) {
	stores := []struct {
		name string
		open openStore
	}{
		{name: "sqlx_sqlite", open: openSQLXSQLite},
		{name: "gorm_sqlite", open: openGORMSQLite},
		{name: "pgx_postgres", open: openPGX},
		{name: "sqlx_postgres", open: openSQLXPostgres},
		{name: "gorm_postgres", open: openGORMPostgres},
	}

	for _, store := range stores {
		t.Run(store.name, func(t *testing.T) {
			runProductRepositoryContract(t, store.open)
		})
	}
}

func fields(name, price string, stock int) product.Fields {
	return product.Fields{
		Name:          name,
		Description:   name + " description",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
}

func mustCreate(t *testing.T, repo ProductRepository, f product.Fields) *product.Product {
	t.Helper()
	p, err := repo.Create(context.Background(), f)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func mustDelete(t *testing.T, repo ProductRepository, id int64) {
	t.Helper()
	deleted, err := repo.SoftDelete(context.Background(), id)
	require.NoError(t, err)
	require.True(t, deleted)
}

func names(products []product.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func runProductRepositoryContract(t *testing.T, open openStore) {
	ctx := context.Background()

	t.Run("create then get returns the stored product", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, fields("Widget", "9.99", 5))
		assert.Positive(t, created.ID)
		assert.True(t, created.IsActive)
		assert.Nil(t, created.UpdatedAt)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, time.UTC, created.CreatedAt.Location())

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Widget", got.Name)
		assert.Equal(t, "Widget description", got.Description)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("9.99")), "price %s", got.Price)
		assert.Equal(t, 5, got.StockQuantity)
		assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
		assert.Nil(t, got.UpdatedAt)
		assert.True(t, got.IsActive)
	})

	t.Run("prices round-trip exactly at full precision", func(t *testing.T) {
		repo := open(t)

		for _, price := range []string{"1234567890123456.78", "9999999999999999.99", "0.01", "0.10"} {
			created := mustCreate(t, repo, fields("Ledger "+price, price, 1))
			assert.True(t, created.Price.Equal(decimal.RequireFromString(price)), "created %s", created.Price)

			got, err := repo.Get(ctx, created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Price.Equal(created.Price.Decimal), "want %s, got %s", created.Price, got.Price)
		}
	})

	t.Run("ids are distinct", func(t *testing.T) {
		repo := open(t)

		a := mustCreate(t, repo, fields("Anvil", "1", 1))
		b := mustCreate(t, repo, fields("Anvil", "1", 1))
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("zero price and stock are valid", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, product.Fields{Name: "Freebie", Price: decimal.Zero})

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Price.IsZero())
		assert.Equal(t, 0, got.StockQuantity)
		assert.Empty(t, got.Description)
	})

	t.Run("list active is ordered by name and skips deleted", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Widget", "9.99", 5))
		mustCreate(t, repo, fields("Anvil", "50", 1))
		gadget := mustCreate(t, repo, fields("Gadget", "20", 2))
		mustCreate(t, repo, fields("Lamp", "15", 3))
		mustDelete(t, repo, gadget.ID)

		products, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Anvil", "Lamp", "Widget"}, names(products))
	})

	t.Run("list active on an empty store is empty", func(t *testing.T) {
		repo := open(t)

		products, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("get of a missing id is absent", func(t *testing.T) {
		repo := open(t)

		got, err := repo.Get(ctx, 4242)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("get of a deleted product is absent", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, fields("Widget", "9.99", 5))
		mustDelete(t, repo, created.ID)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update overwrites fields and stamps updatedAt", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, fields("Widget", "9.99", 5))

		updated, err := repo.Update(ctx, created.ID, product.Fields{
			Name:          "Widget Pro",
			Description:   "",
			Price:         decimal.RequireFromString("12.50"),
			StockQuantity: 0,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Widget Pro", updated.Name)
		assert.Empty(t, updated.Description)
		assert.True(t, updated.Price.Equal(decimal.RequireFromString("12.5")), "price %s", updated.Price)
		assert.Equal(t, 0, updated.StockQuantity)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		require.NotNil(t, updated.UpdatedAt)
		assert.False(t, updated.UpdatedAt.Before(created.CreatedAt))
		assert.True(t, updated.IsActive)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Widget Pro", got.Name)
		assert.True(t, got.Price.Equal(updated.Price.Decimal))
		require.NotNil(t, got.UpdatedAt)
		assert.True(t, got.UpdatedAt.Equal(*updated.UpdatedAt))
	})

	t.Run("update of a missing id is absent", func(t *testing.T) {
		repo := open(t)

		updated, err := repo.Update(ctx, 4242, fields("Ghost", "1", 1))
		require.NoError(t, err)
		assert.Nil(t, updated)

		products, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("update of a deleted product is absent", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, fields("Widget", "9.99", 5))
		mustDelete(t, repo, created.ID)

		updated, err := repo.Update(ctx, created.ID, fields("Revived", "1", 1))
		require.NoError(t, err)
		assert.Nil(t, updated)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("soft delete reports whether a row changed", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, fields("Widget", "9.99", 5))

		deleted, err := repo.SoftDelete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.SoftDelete(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = repo.SoftDelete(ctx, 4242)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("search is a case-insensitive substring match", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Widget", "9.99", 5))
		mustCreate(t, repo, fields("Gadget", "20", 2))

		products, err := repo.SearchByName(ctx, "wid")
		require.NoError(t, err)
		assert.Equal(t, []string{"Widget"}, names(products))

		products, err = repo.SearchByName(ctx, "GET")
		require.NoError(t, err)
		assert.Equal(t, []string{"Gadget", "Widget"}, names(products))
	})

	t.Run("search skips deleted products", func(t *testing.T) {
		repo := open(t)

		widget := mustCreate(t, repo, fields("Widget", "9.99", 5))
		mustCreate(t, repo, fields("Widget Pro", "12.50", 5))
		mustDelete(t, repo, widget.ID)

		products, err := repo.SearchByName(ctx, "widget")
		require.NoError(t, err)
		assert.Equal(t, []string{"Widget Pro"}, names(products))
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("100% Cotton", "30", 1))
		mustCreate(t, repo, fields("Cotton", "25", 1))
		mustCreate(t, repo, fields("snake_case", "1", 1))
		mustCreate(t, repo, fields("snakeXcase", "1", 1))

		products, err := repo.SearchByName(ctx, "%")
		require.NoError(t, err)
		assert.Equal(t, []string{"100% Cotton"}, names(products))

		products, err = repo.SearchByName(ctx, "e_c")
		require.NoError(t, err)
		assert.Equal(t, []string{"snake_case"}, names(products))
	})

	t.Run("empty search term matches every active product", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Widget", "9.99", 5))
		mustCreate(t, repo, fields("Gadget", "20", 2))

		products, err := repo.SearchByName(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Gadget", "Widget"}, names(products))
	})

	t.Run("price range is inclusive and ordered by price", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Twenty", "20", 1))
		mustCreate(t, repo, fields("Five", "5", 1))
		mustCreate(t, repo, fields("Fifteen", "15", 1))
		mustCreate(t, repo, fields("Ten", "10", 1))
		deleted := mustCreate(t, repo, fields("Twelve", "12", 1))
		mustDelete(t, repo, deleted.ID)

		products, err := repo.GetByPriceRange(ctx, decimal.NewFromInt(10), decimal.NewFromInt(15))
		require.NoError(t, err)
		assert.Equal(t, []string{"Ten", "Fifteen"}, names(products))
	})

	t.Run("price range ties are ordered by name", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Widget", "9.99", 1))
		mustCreate(t, repo, fields("Gadget", "9.99", 1))

		products, err := repo.GetByPriceRange(ctx, decimal.RequireFromString("9.99"), decimal.RequireFromString("9.99"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Gadget", "Widget"}, names(products))
	})

	t.Run("price range with sub-cent bounds matches the same rows", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Under", "9.99", 1))
		mustCreate(t, repo, fields("Ten", "10.00", 1))
		mustCreate(t, repo, fields("Over", "10.01", 1))
		mustCreate(t, repo, fields("Ledger", "1234567890123456.78", 1))

		products, err := repo.GetByPriceRange(ctx, decimal.RequireFromString("9.995"), decimal.RequireFromString("10.005"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Ten"}, names(products))

		products, err = repo.GetByPriceRange(ctx, decimal.RequireFromString("1000"), decimal.RequireFromString("1e30"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Ledger"}, names(products))

		products, err = repo.GetByPriceRange(ctx, decimal.RequireFromString("9.991"), decimal.RequireFromString("9.999"))
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("inverted price range is empty", func(t *testing.T) {
		repo := open(t)

		mustCreate(t, repo, fields("Widget", "9.99", 5))

		products, err := repo.GetByPriceRange(ctx, decimal.NewFromInt(20), decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("invalid fields are rejected without writing", func(t *testing.T) {
		repo := open(t)

		invalid := []product.Fields{
			{Name: "", Price: decimal.NewFromInt(1)},
			{Name: "   ", Price: decimal.NewFromInt(1)},
			{Name: "Widget", Price: decimal.NewFromInt(-1)},
			{Name: "Widget", Price: decimal.NewFromInt(1), StockQuantity: -1},
			{Name: "Widget", Price: decimal.RequireFromString("1.005")},
			{Name: "Widget", Price: decimal.New(1, 16)},
		}

		for _, f := range invalid {
			created, err := repo.Create(ctx, f)
			require.ErrorIs(t, err, product.ErrInvalid)
			assert.Nil(t, created)
		}

		products, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)

		existing := mustCreate(t, repo, fields("Widget", "9.99", 5))
		for _, f := range invalid {
			updated, err := repo.Update(ctx, existing.ID, f)
			require.ErrorIs(t, err, product.ErrInvalid)
			assert.Nil(t, updated)
		}

		got, err := repo.Get(ctx, existing.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Widget", got.Name)
		assert.Nil(t, got.UpdatedAt)
	})

	t.Run("widget lifecycle", func(t *testing.T) {
		repo := open(t)

		created := mustCreate(t, repo, fields("Widget", "9.99", 5))
		require.Nil(t, created.UpdatedAt)

		updated, err := repo.Update(ctx, created.ID, fields("Widget Pro", "12.50", 5))
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.Price.Equal(decimal.RequireFromString("12.50")))
		assert.NotNil(t, updated.UpdatedAt)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

		deleted, err := repo.SoftDelete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
