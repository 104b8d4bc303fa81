/*
Package config loads the points server configuration.

PRECEDENCE (later wins):
  1. DefaultConfig()
  2. TOML file (optional, --config flag)
  3. Environment variables
  4. Command-line flags (applied by cmd/server)

EXAMPLE FILE:
  verify_interval = "1m"

  [server]
  addr = ":5000"
  allowed_origins = ["http://localhost:3000"]

  [log]
  level = "debug"
  pretty = true

  [store]
  driver = "sqlite"
  path = "./data/points.db"

  [cache]
  redis_addr = "localhost:6379"
  ttl = "10m"

ENVIRONMENT:
  HTTP_ADDR, CORS_ORIGINS, LOG_LEVEL, LOG_PRETTY, STORE_DRIVER, STORE_PATH,
  REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, CACHE_TTL, CACHE_BREAKER_FAILURES,
  CACHE_BREAKER_TIMEOUT, METRICS_ENABLED, VERIFY_INTERVAL
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server  ServerConfig `toml:"server"`
	Log     LogConfig    `toml:"log"`
	Store   StoreConfig  `toml:"store"`
	Cache   CacheConfig  `toml:"cache"`
	Metrics bool         `toml:"metrics" env:"METRICS_ENABLED"`

	// VerifyInterval is how often every account's ledger is checked
	// against its balances. 0 disables the check.
	VerifyInterval time.Duration `toml:"verify_interval" env:"VERIFY_INTERVAL"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr" env:"HTTP_ADDR"`
	AllowedOrigins  []string      `toml:"allowed_origins" env:"CORS_ORIGINS"`
	ReadTimeout     time.Duration `toml:"read_timeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `toml:"write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Pretty bool   `toml:"pretty" env:"LOG_PRETTY"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type StoreConfig struct {
	Driver string `toml:"driver" env:"STORE_DRIVER"`
	Path   string `toml:"path" env:"STORE_PATH"`
}

// CacheConfig configures the Redis balance mirror. Empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr     string        `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `toml:"redis_db" env:"REDIS_DB"`
	TTL           time.Duration `toml:"ttl" env:"CACHE_TTL"`

	// Circuit breaker around Redis calls.
	BreakerFailures uint32        `toml:"breaker_failures" env:"CACHE_BREAKER_FAILURES"`
	BreakerTimeout  time.Duration `toml:"breaker_timeout" env:"CACHE_BREAKER_TIMEOUT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Path:   "points.db",
		},
		Cache: CacheConfig{
			TTL:             10 * time.Minute,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Metrics:        true,
		VerifyInterval: 5 * time.Minute,
	}
}

// Load builds a Config from defaults, the optional TOML file at path, and
// the environment.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// Fields without a matching variable keep their current value.
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	if c.VerifyInterval < 0 {
		return errors.New("verify_interval must not be negative")
	}
	return nil
}
