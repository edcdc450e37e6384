package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL        string
	ServerPort         string
	BaseURL            string
	FrontendURL        string
	EnableHSTS         bool
	OIDCIssuer         string
	OIDCAudience       string
	OIDCJWKSURL        string
	JWKSCacheTTL       time.Duration
	CORSAllowedOrigins string
	RateLimit          string
	RequestTimeout     time.Duration
	MaxRequestSize     int
	RedisURL           string
	RabbitMQURL        string
	RabbitMQPrefetch   int
	LockTTL            time.Duration
	CadenceConfigPath  string
	CadenceInterval    time.Duration
	DLQRetention       time.Duration
	DLQGCInterval      time.Duration
	WorkerDebugMode    bool
	ServerDebugMode    bool
	OTELEnabled        bool
	OTELEndpoint       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:        getEnvBool("ENABLE_HSTS", false),
		OIDCIssuer:        strings.TrimSuffix(getEnv("OIDC_ISSUER", ""), "/"),
		OIDCAudience:      getEnv("OIDC_AUDIENCE", ""),
		OIDCJWKSURL:       getEnv("OIDC_JWKS_URL", ""),
		JWKSCacheTTL:      getEnvDuration("JWKS_CACHE_TTL", time.Hour),
		RateLimit:         getEnv("RATE_LIMIT", "10-S"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestSize:    getEnvInt("MAX_REQUEST_SIZE", 1<<20),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:  getEnvInt("RABBITMQ_PREFETCH", 1),
		LockTTL:           getEnvDuration("LOCK_TTL", 2*time.Minute),
		CadenceConfigPath: getEnv("CADENCE_CONFIG_PATH", ""),
		CadenceInterval:   getEnvDuration("CADENCE_INTERVAL", 5*time.Minute),
		DLQRetention:      getEnvDuration("DLQ_RETENTION", 7*24*time.Hour),
		DLQGCInterval:     getEnvDuration("DLQ_GC_INTERVAL", time.Hour),
		WorkerDebugMode:   getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:   getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:       getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	cfg.CORSAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.FrontendURL)
	if cfg.OIDCJWKSURL == "" && cfg.OIDCIssuer != "" {
		cfg.OIDCJWKSURL = cfg.OIDCIssuer + "/.well-known/jwks.json"
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (schedule generation runs on the worker)")
	}

	return cfg, nil
}

// RequireAuth reports whether token verification is configured. Only the
// API server needs it.
func (c *Config) RequireAuth() error {
	if c.OIDCIssuer == "" {
		return fmt.Errorf("OIDC_ISSUER is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
