// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skryldev/userstore/db"
)

// Env names a deployment profile.
type Env string

const (
	EnvLocal       Env = "local"
	EnvDevelopment Env = "development"
	EnvTesting     Env = "testing"
	EnvStaging     Env = "staging"
	EnvProduction  Env = "production"
)

// ParseEnv accepts the profile names case-insensitively.
func ParseEnv(s string) (Env, error) {
	switch e := Env(strings.ToLower(strings.TrimSpace(s))); e {
	case EnvLocal, EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return e, nil
	}
	return "", fmt.Errorf("unknown APP_ENV %q", s)
}

// IsDev reports whether the profile is meant for a developer machine.
func (e Env) IsDev() bool {
	return e == EnvLocal || e == EnvDevelopment || e == EnvTesting
}

// Config represents the full runtime configuration tree.
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Security   SecurityConfig
	Monitoring MonitoringConfig
}

// AppConfig captures application-level settings.
type AppConfig struct {
	Env      Env
	LogLevel string
}

// DatabaseConfig stores database connectivity info.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DefaultTimeout  time.Duration
	SlowQuery       time.Duration
	LogArgs         bool
	AutoMigrate     bool
}

// SecurityConfig covers password policy.
type SecurityConfig struct {
	RequirePassword bool
	BcryptCost      int
}

// MonitoringConfig adds observability tunables.
type MonitoringConfig struct {
	MetricsEnabled bool
	TracingEnabled bool
}

// Load reads from environment (optionally .env) and builds Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env, err := ParseEnv(getenv("APP_ENV", string(EnvDevelopment)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      env,
			LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getenv("DB_DRIVER", "sqlite3")),
			DSN:             getenv("DB_DSN", "userstore.db?_busy_timeout=5000"),
			MaxOpenConns:    getInt("DB_MAX_OPEN", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE", 10),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			DefaultTimeout:  getDuration("DB_DEFAULT_TIMEOUT", 5*time.Second),
			SlowQuery:       getDuration("DB_SLOW_QUERY", 200*time.Millisecond),
			LogArgs:         getBool("DB_LOG_ARGS", false),
			AutoMigrate:     getBool("DB_AUTO_MIGRATE", true),
		},
		Security: SecurityConfig{
			RequirePassword: getBool("REQUIRE_PASSWORD", false),
			BcryptCost:      getInt("BCRYPT_COST", 12),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", false),
			TracingEnabled: getBool("TRACING_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "mysql", "sqlite3":
	default:
		return fmt.Errorf("unsupported db driver %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN must not be empty")
	}
	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %s", c.App.LogLevel)
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// DBConfig converts the database section into a db.Config.
func (c *Config) DBConfig(hooks ...db.Hook) db.Config {
	return db.Config{
		DSN:             c.Database.DSN,
		DriverName:      c.Database.Driver,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		DefaultTimeout:  c.Database.DefaultTimeout,
		Hooks:           hooks,
	}
}

func getenv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getInt(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}

func getBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func getDuration(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return def
	}
	return d
}
