package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/deppfellow/go-catalog/internal/config"
	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Embed all SQL files under migrations/ at compile time so the binary
// carries its own schema.
//
//go:embed migrations/*.sql
var migrations embed.FS

//go:embed schema/sqlite.sql
var sqliteSchema string

// Migrate brings the catalog schema up to date for the configured store.
//
//   - postgres (any driver): tern migrations over a dedicated pgx connection
//   - sqlite + sqlx: the embedded sqlite DDL, applied on db's own handle
//   - sqlite + gorm: gorm AutoMigrate of product.Product
//
// sqlite runs on db because an in-memory database only exists inside the
// handle that created it.
func Migrate(ctx context.Context, logger *zerolog.Logger, cfg *config.Config, db *Database) error {
	if cfg.Store.Dialect == config.DialectPostgres {
		return MigratePostgres(ctx, logger, PostgresDSN(&cfg.Database))
	}

	switch {
	case db.SQL != nil:
		if err := ApplySQLiteSchema(ctx, db.SQL); err != nil {
			return err
		}
	case db.ORM != nil:
		if err := AutoMigrate(ctx, db.ORM); err != nil {
			return err
		}
	default:
		return fmt.Errorf("no sqlite handle to migrate for driver %q", cfg.Store.Driver)
	}

	logger.Info().Str("driver", cfg.Store.Driver).Msg("sqlite schema applied")
	return nil
}

// ApplySQLiteSchema executes the embedded sqlite DDL. Statements are idempotent.
func ApplySQLiteSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("applying sqlite schema: %w", err)
	}
	return nil
}

// AutoMigrate lets gorm create or extend the products table from product.Product.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&product.Product{}); err != nil {
		return fmt.Errorf("auto-migrating products: %w", err)
	}
	return nil
}

// MigratePostgres runs the embedded tern migrations against dsn up to the
// latest version.
func MigratePostgres(ctx context.Context, logger *zerolog.Logger, dsn string) error {
	// A single connection is enough for a one-time action.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	// Migration version is stored in the schema_version table.
	m, err := tern.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	if err := m.Migrate(ctx); err != nil {
		return err
	}

	if from == int32(len(m.Migrations)) {
		logger.Info().Msgf("database schema up to date, version %d", len(m.Migrations))
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, len(m.Migrations))
	}
	return nil
}
