// Package config assembles runtime settings from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"log"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	App     AppConfig     `yaml:"app"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustedProxies are CIDRs or IPs whose X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	// SessionStore defaults to Driver when empty.
	SessionStore string `yaml:"session_store"`
	RedisURL     string `yaml:"redis_url"`
}

type AuthConfig struct {
	// RatePerMinute of zero disables the register/login limiter.
	RatePerMinute int `yaml:"rate_per_minute"`
	RateBurst     int `yaml:"rate_burst"`
	BcryptCost    int `yaml:"bcrypt_cost"`
}

type AppConfig struct {
	Environment string `yaml:"environment"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "5000",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:5000"},
		},
		Storage: StorageConfig{Driver: DriverMemory},
		Auth: AuthConfig{
			RatePerMinute: 30,
			RateBurst:     10,
			BcryptCost:    bcrypt.DefaultCost,
		},
		App: AppConfig{Environment: "development"},
	}
}

// Load reads .env.local if present, then CONFIG_FILE if set, then the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env.local: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		c.Server.TrustedProxies = splitList(proxies)
	}

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DatabaseURL = getEnv("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.SessionStore = getEnv("SESSION_STORE", c.Storage.SessionStore)
	c.Storage.RedisURL = getEnv("REDIS_URL", c.Storage.RedisURL)

	c.Auth.RatePerMinute = getEnvAsInt("AUTH_RATE_PER_MINUTE", c.Auth.RatePerMinute)
	c.Auth.RateBurst = getEnvAsInt("AUTH_RATE_BURST", c.Auth.RateBurst)
	c.Auth.BcryptCost = getEnvAsInt("BCRYPT_COST", c.Auth.BcryptCost)

	c.App.Environment = getEnv("APP_ENV", c.App.Environment)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.SessionDriver() {
	case DriverMemory, DriverPostgres:
		if c.SessionDriver() != c.Storage.Driver {
			return fmt.Errorf("SESSION_STORE=%s needs STORAGE_DRIVER=%s", c.SessionDriver(), c.SessionDriver())
		}
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.Storage.SessionStore)
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.RatePerMinute > 0 && c.Auth.RateBurst < 1 {
		return fmt.Errorf("AUTH_RATE_BURST must be positive when rate limiting is on")
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a single
// host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.Server.TrustedProxies))
	for _, s := range c.Server.TrustedProxies {
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", s)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// SessionDriver is where sessions live: SessionStore, or the main driver.
func (c *Config) SessionDriver() string {
	if c.Storage.SessionStore != "" {
		return c.Storage.SessionStore
	}
	return c.Storage.Driver
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[config] invalid integer for %s, using %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
