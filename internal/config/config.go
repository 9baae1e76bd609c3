// Package config provides environment-aware configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	hubruntime "github.com/careerhub/hub/internal/runtime"
)

// Environment represents the deployment environment.
type Environment = hubruntime.Environment

const (
	Development = hubruntime.Development
	Testing     = hubruntime.Testing
	Production  = hubruntime.Production
)

// Config holds all application configuration.
type Config struct {
	Env Environment

	// HTTP server
	HTTPPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Postgres (internal/platform/database)
	DatabaseURL      string
	DBMaxConnections int
	DBIdleTimeout    time.Duration

	// Redis (infrastructure/cache, infrastructure/ratelimit)
	RedisURL string

	// Session/Auth (4.H)
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// AI Orchestrator provider (4.J) — the model SDK itself is out of scope;
	// this is just the credential/endpoint the configured Provider reads.
	AIProviderAPIKey  string
	AIProviderBaseURL string
	AIProviderModel   string

	// Billing provider (4.K)
	PaymentProviderAPIKey  string
	PaymentProviderWebhook string
	PaymentCurrencyDefault string

	// Rate limiting (4.C)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// CORS
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string

	// Observability
	MetricsEnabled  bool
	MetricsPort     int
	TracingEnabled  bool
	TracingEndpoint string

	// Features
	EnableProfiling      bool
	EnableDebugEndpoints bool
	TestMode             bool
}

// Load loads configuration based on the HUB_ENV environment variable.
func Load() (*Config, error) {
	envStr := os.Getenv("HUB_ENV")
	if envStr == "" {
		envStr = string(hubruntime.Development)
	}

	parsedEnv, ok := hubruntime.ParseEnvironment(envStr)
	if !ok {
		return nil, fmt.Errorf("invalid HUB_ENV: %s (must be development, testing, or production)", envStr)
	}
	env := parsedEnv

	configFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(configFile); err != nil {
		// Config file is optional; only warn on non-"file not found" errors
		// (e.g. parse errors) to avoid noisy logs during tests and CI runs.
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Warning: Could not load %s: %v\n", configFile, err)
		}
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	var err error

	c.HTTPPort = getIntEnv("HTTP_PORT", 8080)
	readTimeout := getEnv("HTTP_READ_TIMEOUT", "10s")
	if c.ReadTimeout, err = time.ParseDuration(readTimeout); err != nil {
		return fmt.Errorf("invalid HTTP_READ_TIMEOUT: %w", err)
	}
	writeTimeout := getEnv("HTTP_WRITE_TIMEOUT", "15s")
	if c.WriteTimeout, err = time.ParseDuration(writeTimeout); err != nil {
		return fmt.Errorf("invalid HTTP_WRITE_TIMEOUT: %w", err)
	}
	idleTimeout := getEnv("HTTP_IDLE_TIMEOUT", "60s")
	if c.IdleTimeout, err = time.ParseDuration(idleTimeout); err != nil {
		return fmt.Errorf("invalid HTTP_IDLE_TIMEOUT: %w", err)
	}

	c.DatabaseURL = getEnv("DATABASE_URL", "")
	if c.DatabaseURL == "" && c.Env == Production {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	c.DBMaxConnections = getIntEnv("DB_MAX_CONNECTIONS", 20)
	dbIdleTimeout := getEnv("DB_IDLE_TIMEOUT", "5m")
	if c.DBIdleTimeout, err = time.ParseDuration(dbIdleTimeout); err != nil {
		return fmt.Errorf("invalid DB_IDLE_TIMEOUT: %w", err)
	}

	c.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")

	c.JWTSecret = getEnv("JWT_SECRET", "")
	if c.JWTSecret == "" {
		if c.Env == Production {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-insecure-secret-do-not-use-in-production"
	}
	accessTTL := getEnv("ACCESS_TOKEN_TTL", "15m")
	if c.AccessTokenTTL, err = time.ParseDuration(accessTTL); err != nil {
		return fmt.Errorf("invalid ACCESS_TOKEN_TTL: %w", err)
	}
	refreshTTL := getEnv("REFRESH_TOKEN_TTL", "720h")
	if c.RefreshTokenTTL, err = time.ParseDuration(refreshTTL); err != nil {
		return fmt.Errorf("invalid REFRESH_TOKEN_TTL: %w", err)
	}

	c.AIProviderAPIKey = getEnv("AI_PROVIDER_API_KEY", "")
	c.AIProviderBaseURL = getEnv("AI_PROVIDER_BASE_URL", "")
	c.AIProviderModel = getEnv("AI_PROVIDER_MODEL", "")
	if c.AIProviderAPIKey == "" && c.Env == Production {
		return fmt.Errorf("AI_PROVIDER_API_KEY is required in production")
	}

	c.PaymentProviderAPIKey = getEnv("PAYMENT_PROVIDER_API_KEY", "")
	c.PaymentProviderWebhook = getEnv("PAYMENT_PROVIDER_WEBHOOK_SECRET", "")
	c.PaymentCurrencyDefault = getEnv("PAYMENT_CURRENCY_DEFAULT", "usd")
	if c.PaymentProviderAPIKey == "" && c.Env == Production {
		return fmt.Errorf("PAYMENT_PROVIDER_API_KEY is required in production")
	}

	c.RateLimitEnabled = getBoolEnv("RATE_LIMIT_ENABLED", true)
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", 100)
	rateLimitWindow := getEnv("RATE_LIMIT_WINDOW", "1m")
	if c.RateLimitWindow, err = time.ParseDuration(rateLimitWindow); err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	c.CORSOrigins = strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",")

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", c.Env == Production)
	c.MetricsPort = getIntEnv("METRICS_PORT", 9090)
	c.TracingEnabled = getBoolEnv("TRACING_ENABLED", c.Env == Production)
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", "")

	c.EnableProfiling = getBoolEnv("ENABLE_PROFILING", false)
	c.EnableDebugEndpoints = getBoolEnv("ENABLE_DEBUG_ENDPOINTS", false)
	c.TestMode = getBoolEnv("TEST_MODE", false)

	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == Development }
func (c *Config) IsTesting() bool     { return c.Env == Testing }
func (c *Config) IsProduction() bool  { return c.Env == Production }

// Validate checks invariants that must hold before the server starts,
// failing fast in production rather than serving with an unsafe
// configuration.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "dev-insecure-secret-do-not-use-in-production" {
			return fmt.Errorf("JWT_SECRET must be set to a real secret in production")
		}
		if c.EnableDebugEndpoints {
			return fmt.Errorf("ENABLE_DEBUG_ENDPOINTS must be false in production")
		}
		if c.TestMode {
			return fmt.Errorf("TEST_MODE must be false in production")
		}
		if !c.RateLimitEnabled {
			return fmt.Errorf("RATE_LIMIT_ENABLED must be true in production")
		}
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.MetricsEnabled && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		return fmt.Errorf("invalid METRICS_PORT: %d", c.MetricsPort)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
