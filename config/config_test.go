package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "LOG_LEVEL", "DB_DRIVER", "DB_DSN", "DB_DEFAULT_TIMEOUT", "REQUIRE_PASSWORD", "BCRYPT_COST"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.DefaultTimeout)
	assert.False(t, cfg.Security.RequirePassword)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_DSN", "postgres://app@localhost/app")
	t.Setenv("DB_MAX_OPEN", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "1h")
	t.Setenv("DB_SLOW_QUERY", "not-a-duration")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("REQUIRE_PASSWORD", "true")
	t.Setenv("METRICS_ENABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.False(t, cfg.App.Env.IsDev())
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQuery, "bad values fall back to the default")
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Security.RequirePassword)
	assert.True(t, cfg.Monitoring.MetricsEnabled)

	dbc := cfg.DBConfig()
	assert.Equal(t, "pgx", dbc.DriverName)
	assert.Equal(t, "postgres://app@localhost/app", dbc.DSN)
	assert.Equal(t, 7, dbc.MaxOpenConns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"APP_ENV", "moon"},
		{"DB_DRIVER", "oracle"},
		{"LOG_LEVEL", "loud"},
		{"BCRYPT_COST", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseEnv(t *testing.T) {
	for _, s := range []string{"local", "development", "testing", "staging", "production"} {
		e, err := ParseEnv(s)
		require.NoError(t, err)
		assert.Equal(t, Env(s), e)
	}
	assert.True(t, EnvLocal.IsDev())
	assert.True(t, EnvTesting.IsDev())
	assert.False(t, EnvStaging.IsDev())
}
