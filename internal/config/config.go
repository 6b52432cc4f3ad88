package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Redis    RedisConfig
	OTEL     OTELConfig
	Services ServicesConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	BodyLimitMB int64
}

// AuthConfig holds bearer-token verification configuration
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// RedisConfig holds Redis connection configuration for the idempotency cache.
// An empty Addr disables the cache entirely.
type RedisConfig struct {
	Addr           string
	Password       string
	IdempotencyTTL time.Duration
}

// OTELConfig holds OpenTelemetry export configuration
type OTELConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	InstanceID     string
	Token          string
}

// Service holds the outbound connection settings for one backend domain
// service: base URL, static API key and API version segment.
type Service struct {
	BaseURL string
	APIKey  string
	Version string
}

// ServicesConfig enumerates every backend the gateway can forward to,
// one {URL, KEY, VERSION} env triple each.
type ServicesConfig struct {
	User     Service
	Merchant Service
	Device   Service
	Product  Service
	Voucher  Service
	Customer Service
	Order    Service
	Payment  Service
	Billing  Service
	Events   Service
	Passes   Service
	OCPP     Service
	Ledgers  Service
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			BodyLimitMB: getEnvAsInt64("MAX_BODY_SIZE_MB", 4),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 10*time.Minute),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "merchant-gateway"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("OTEL_ENVIRONMENT", "development"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			InstanceID:     getEnv("OTEL_INSTANCE_ID", ""),
			Token:          getEnv("OTEL_TOKEN", ""),
		},
		Services: ServicesConfig{
			User:     loadService("USER"),
			Merchant: loadService("MERCHANT"),
			Device:   loadService("DEVICE"),
			Product:  loadService("PRODUCT"),
			Voucher:  loadService("VOUCHER"),
			Customer: loadService("CUSTOMER"),
			Order:    loadService("ORDER"),
			Payment:  loadService("PAYMENT"),
			Billing:  loadService("BILLING"),
			Events:   loadService("EVENTS_PROCESSOR"),
			Passes:   loadService("PASSES"),
			OCPP:     loadService("OCPP16"),
			Ledgers:  loadService("LEDGERS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadService reads the {URL, KEY, VERSION} triple for one backend, e.g.
// MERCHANT_SERVICE_URL, MERCHANT_SERVICE_KEY, MERCHANT_SERVICE_VERSION.
func loadService(prefix string) Service {
	return Service{
		BaseURL: getEnv(prefix+"_SERVICE_URL", ""),
		APIKey:  getEnv(prefix+"_SERVICE_KEY", ""),
		Version: getEnv(prefix+"_SERVICE_VERSION", "v1"),
	}
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Services.User.BaseURL == "" {
		return fmt.Errorf("USER_SERVICE_URL is required")
	}
	if c.Services.Merchant.BaseURL == "" {
		return fmt.Errorf("MERCHANT_SERVICE_URL is required")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as time.Duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
