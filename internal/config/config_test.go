package config_test

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/EngCalc/calc-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "CORS_ALLOWED_ORIGINS", "STORAGE_DRIVER", "DATABASE_URL",
	"SESSION_STORE", "REDIS_URL", "AUTH_RATE_PER_MINUTE", "AUTH_RATE_BURST", "BCRYPT_COST", "APP_ENV",
	"TRUSTED_PROXIES",
}

// clearEnv blanks every variable Load reads. Empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, config.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, config.DriverMemory, cfg.SessionDriver())
	assert.Equal(t, 30, cfg.Auth.RatePerMinute)
	assert.Equal(t, 10, cfg.Auth.RateBurst)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/engcalc")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("AUTH_RATE_PER_MINUTE", "0")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.DriverRedis, cfg.SessionDriver())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Zero(t, cfg.Auth.RatePerMinute)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
}

func TestLoad_YAMLFileUnderEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  allowed_origins:
    - https://app.example
storage:
  driver: postgres
  database_url: postgres://db/engcalc
auth:
  rate_per_minute: 5
  rate_burst: 2
app:
  environment: staging
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, config.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://db/engcalc", cfg.Storage.DatabaseURL)
	assert.Equal(t, 5, cfg.Auth.RatePerMinute)
	assert.Equal(t, 2, cfg.Auth.RateBurst)
	assert.Equal(t, "staging", cfg.App.Environment)
	// Untouched keys keep their defaults.
	assert.Equal(t, config.Default().Auth.BcryptCost, cfg.Auth.BcryptCost)
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "mongo" }},
		{"postgres without url", func(c *config.Config) { c.Storage.Driver = config.DriverPostgres }},
		{"redis sessions without url", func(c *config.Config) { c.Storage.SessionStore = config.DriverRedis }},
		{"postgres sessions over memory", func(c *config.Config) { c.Storage.SessionStore = config.DriverPostgres }},
		{"unknown session store", func(c *config.Config) { c.Storage.SessionStore = "file" }},
		{"bcrypt cost too low", func(c *config.Config) { c.Auth.BcryptCost = 1 }},
		{"limiter without burst", func(c *config.Config) { c.Auth.RateBurst = 0 }},
		{"empty port", func(c *config.Config) { c.Server.Port = "" }},
		{"bad trusted proxy", func(c *config.Config) { c.Server.TrustedProxies = []string{"lb.internal"} }},
	}

	require.NoError(t, config.Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7,::ffff:172.16.0.1")

	cfg, err := config.Load()
	require.NoError(t, err)

	got, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
		netip.MustParsePrefix("172.16.0.1/32"),
	}, got)

	none, err := config.Default().TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Empty(t, none)
}
