// Package config manages environment variables.
//
// It reads variables from the process environment (and the `.env` file,
// when present), loads them into structured Go types and validates them so
// the application fails fast on bad or missing config.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values and cross-field rules (store driver vs dialect).
//   - Provide sane defaults for optional config blocks (server, store, observability).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read with the CATALOG_ prefix, lowercased, and nested through
	the "." delimiter:

		CATALOG_STORE.DRIVER=sqlx        -> store.driver     -> Config.Store.Driver
		CATALOG_DATABASE.HOST=localhost  -> database.host    -> Config.Database.Host
*/

// EnvPrefix is the prefix every configuration variable carries.
const EnvPrefix = "CATALOG_"

// Store drivers: the three interchangeable data-access strategies.
const (
	DriverPGX  = "pgx"
	DriverSQLX = "sqlx"
	DriverGORM = "gorm"
)

// Store dialects: the database engine behind the driver.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Store         StoreConfig          `koanf:"store" validate:"required"`
	Database      DatabaseConfig       `koanf:"database"`
	Redis         RedisConfig          `koanf:"redis"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
// Used to tag logs/traces and to switch behavior ("local" enables SQL logging).
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// StoreConfig selects the catalog store implementation.
//
// Driver picks the data-access strategy; Dialect picks the engine it talks to.
// pgx only speaks PostgreSQL; sqlx and gorm run on PostgreSQL or SQLite.
type StoreConfig struct {
	Driver     string `koanf:"driver" validate:"required,oneof=pgx sqlx gorm"`
	Dialect    string `koanf:"dialect" validate:"required,oneof=postgres sqlite"`
	SQLitePath string `koanf:"sqlite_path"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// Only consulted when the store dialect is postgres.
type DatabaseConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	User            string `koanf:"user"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
}

// RedisConfig contains Redis connection details ("host:port").
// Empty Address means the service runs without Redis.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// RateLimitConfig controls the Redis-backed request rate limiter.
// Requests are allowed per client IP per Window (seconds).
type RateLimitConfig struct {
	Enabled  bool `koanf:"enabled"`
	Requests int  `koanf:"requests"`
	Window   int  `koanf:"window"`
}

// LoadConfig loads configuration from CATALOG_ environment variables,
// unmarshals it into Config, applies defaults and validates the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	mainConfig.applyDefaults()

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return mainConfig, nil
}

// applyDefaults fills the optional knobs left empty by the environment.
func (c *Config) applyDefaults() {
	if c.Primary.Env == "" {
		c.Primary.Env = "local"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverPGX
	}
	if c.Store.Dialect == "" {
		c.Store.Dialect = DialectPostgres
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 60
	}

	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 60
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
	// Service name and environment always follow the primary config so
	// logs and traces are tagged consistently.
	c.Observability.ServiceName = "catalog"
	c.Observability.Environment = c.Primary.Env
}

// Validate applies the cross-field rules struct tags cannot express.
func (c *Config) Validate() error {
	if c.Store.Driver == DriverPGX && c.Store.Dialect != DialectPostgres {
		return fmt.Errorf("store driver %q requires dialect %q", DriverPGX, DialectPostgres)
	}

	switch c.Store.Dialect {
	case DialectPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("database host, user and name are required for dialect %q", DialectPostgres)
		}
	case DialectSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store sqlite_path is required for dialect %q", DialectSQLite)
		}
	}

	if c.RateLimit.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("rate limiting requires redis address")
	}

	return c.Observability.Validate()
}

// IsLocal reports whether the app runs in the "local" environment,
// where SQL statements are logged.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}

// Hostname returns the machine hostname, used to label telemetry.
// Falls back to "unknown" when the OS does not report one.
func Hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
