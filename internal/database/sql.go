package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/go-catalog/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// sqlite in-memory databases live as long as their single connection.
const sqliteMemory = ":memory:"

// OpenSQLX opens a sqlx handle for the configured dialect:
// lib/pq for postgres, go-sqlite3 for sqlite.
func OpenSQLX(cfg *config.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Store.Dialect {
	case config.DialectPostgres:
		db, err = sqlx.Open("postgres", PostgresDSN(&cfg.Database))
	case config.DialectSQLite:
		db, err = sqlx.Open("sqlite3", SQLiteDSN(cfg.Store.SQLitePath))
	default:
		err = fmt.Errorf("unknown store dialect %q", cfg.Store.Dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlx database: %w", err)
	}

	configurePool(db.DB, cfg)
	return db, nil
}

// SQLiteDSN turns a sqlite path into a go-sqlite3 DSN with a busy timeout.
func SQLiteDSN(path string) string {
	if path == sqliteMemory {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_busy_timeout=5000"
	}
	return path + "?_busy_timeout=5000"
}

// configurePool applies the pool settings to a database/sql handle.
//
// An in-memory sqlite database is pinned to one connection that never
// expires, so every query sees the same data.
func configurePool(db *sql.DB, cfg *config.Config) {
	if cfg.Store.Dialect == config.DialectSQLite {
		db.SetMaxOpenConns(1)
		if cfg.Store.SQLitePath == sqliteMemory {
			db.SetMaxIdleConns(1)
			db.SetConnMaxLifetime(0)
			db.SetConnMaxIdleTime(0)
		}
		return
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second)
}
