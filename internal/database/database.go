// Package database contains the logic for establishing
// connections to the catalog database.
//
// Three access strategies are supported, selected by store.driver:
//   - pgx: a pgxpool connection pool (PostgreSQL only)
//   - sqlx: database/sql + sqlx over lib/pq (PostgreSQL) or go-sqlite3
//   - gorm: the gorm ORM over its postgres or sqlite dialector
//
// It handles:
//   - building a DSN from config
//   - creating the handle for the configured driver and pinging it
//   - wiring query tracing/logging (pgx tracelog, gorm logger)
//   - optional New Relic instrumentation (nrpgx5)
package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/deppfellow/go-catalog/internal/config"
	loggerConfig "github.com/deppfellow/go-catalog/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Database wraps the open handle for the configured driver and a logger.
//
// Exactly one of Pool, SQL and ORM is set, matching Driver.
type Database struct {
	Driver string
	Pool   *pgxpool.Pool
	SQL    *sqlx.DB
	ORM    *gorm.DB
	log    *zerolog.Logger
}

// multiTracer allows chaining multiple tracers.
//
// pgx supports a single Tracer in ConnConfig. This adapter runs the New Relic
// tracer and the local SQL tracelog side by side.
type multiTracer struct {
	tracers []any
}

// TraceQueryStart calls every tracer implementing it, threading ctx through.
func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryStart(context.Context, *pgx.Conn, pgx.TraceQueryStartData) context.Context
		}); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

// TraceQueryEnd calls every tracer implementing it.
func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData)
		}); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// DatabasePingTimeout defines the number of seconds to wait for a ping
// before considering the database "unreachable".
const DatabasePingTimeout = 10

// New opens the handle for cfg.Store.Driver, pings it and returns the wrapper.
//
// loggerService may be nil (New Relic not configured).
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	database := &Database{
		Driver: cfg.Store.Driver,
		log:    logger,
	}

	var err error
	switch cfg.Store.Driver {
	case config.DriverPGX:
		database.Pool, err = newPool(cfg, logger, loggerService)
	case config.DriverSQLX:
		database.SQL, err = OpenSQLX(cfg)
	case config.DriverGORM:
		database.ORM, err = OpenGORM(cfg, *logger)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	// Ping the DB with a timeout, so startup fails fast if DB is down.
	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("driver", cfg.Store.Driver).
		Str("dialect", cfg.Store.Dialect).
		Msg("connected to the database")

	return database, nil
}

// PostgresDSN builds the postgres:// URL from config.
//
// The password is URL-escaped and IPv6 hosts are bracketed.
func PostgresDSN(cfg *config.DatabaseConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	encodedPassword := url.QueryEscape(cfg.Password)

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.User,
		encodedPassword,
		hostPort,
		cfg.Name,
		cfg.SSLMode,
	)
}

// newPool creates a pgx connection pool with instrumentation.
//
// New Relic tracing is attached when the agent runs. In local env every
// statement is also logged through tracelog + zerolog; when both apply they
// are chained with multiTracer.
func newPool(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*pgxpool.Pool, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(PostgresDSN(&cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	pgxPoolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgxPoolConfig.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	pgxPoolConfig.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second

	if loggerService != nil && loggerService.GetApplication() != nil {
		pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	if cfg.IsLocal() {
		globalLevel := logger.GetLevel()
		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(loggerConfig.NewPgxLogger(globalLevel)),
			LogLevel: tracelog.LogLevel(loggerConfig.GetPgxTraceLogLevel(globalLevel)),
		}

		if pgxPoolConfig.ConnConfig.Tracer != nil {
			pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
				tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
			}
		} else {
			pgxPoolConfig.ConnConfig.Tracer = localTracer
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// Ping checks the open handle is reachable. Used at startup and by /status.
func (db *Database) Ping(ctx context.Context) error {
	switch {
	case db.Pool != nil:
		return db.Pool.Ping(ctx)
	case db.SQL != nil:
		return db.SQL.PingContext(ctx)
	case db.ORM != nil:
		sqlDB, err := db.ORM.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return errors.New("database not initialized")
}

// Close closes the open handle.
func (db *Database) Close() error {
	db.log.Info().Msg("closing database connection pool")

	switch {
	case db.Pool != nil:
		db.Pool.Close()
	case db.SQL != nil:
		return db.SQL.Close()
	case db.ORM != nil:
		sqlDB, err := db.ORM.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
