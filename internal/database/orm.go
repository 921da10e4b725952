package database

import (
	"fmt"

	"github.com/deppfellow/go-catalog/internal/config"
	loggerConfig "github.com/deppfellow/go-catalog/internal/logger"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenGORM opens a gorm handle for the configured dialect.
//
// Query logging goes through zerolog: slow statements (past
// logging.slow_query_threshold) warn, and local env logs every statement.
func OpenGORM(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Store.Dialect {
	case config.DialectPostgres:
		dialector = postgres.Open(PostgresDSN(&cfg.Database))
	case config.DialectSQLite:
		dialector = sqlite.Open(SQLiteDSN(cfg.Store.SQLitePath))
	default:
		return nil, fmt.Errorf("unknown store dialect %q", cfg.Store.Dialect)
	}

	gormLogger := loggerConfig.NewGormLogger(
		logger,
		cfg.Observability.Logging.SlowQueryThreshold,
		cfg.IsLocal(),
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		// Writes are single statements or explicit transactions.
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access gorm connection pool: %w", err)
	}
	configurePool(sqlDB, cfg)

	return db, nil
}
