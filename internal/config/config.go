package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration loaded from environment variables
type Config struct {
	// HTTP
	Port        string
	Environment string

	// Logging
	LogLevel string
	LogFile  string

	// Postgres
	DatabaseURL string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Auth
	JWTSecret string

	// Engagement engine
	PollInterval    time.Duration
	DispatchTimeout time.Duration

	// Telemetry
	OTLPEndpoint   string
	TracingEnabled bool
}

// Load reads configuration from the environment, applying defaults suitable
// for local development.
func Load() *Config {
	return &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Environment:     getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:         getEnvOrDefault("LOG_FILE", "server.log"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisHost:       getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:       getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		PollInterval:    getEnvDuration("ENGAGEMENT_POLL_INTERVAL", 30*time.Second),
		DispatchTimeout: getEnvDuration("ENGAGEMENT_DISPATCH_TIMEOUT", 5*time.Second),
		OTLPEndpoint:    getEnvOrDefault("OTLP_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getEnvBool("TRACING_ENABLED", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
