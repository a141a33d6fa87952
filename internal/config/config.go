// Package config provides environment configuration for the coordination server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Storage settings
	DeliveriesFile    string
	ConversationsFile string

	// Duplicate filter settings
	DedupeWindow    time.Duration
	DedupeRetention time.Duration

	// Extraction settings
	ExtractionProvider string
	OpenAIAPIKey       string
	AnthropicAPIKey    string
	ExtractionTimeout  time.Duration
	HistoryLimit       int

	// Green API settings
	GreenAPIBaseURL    string
	GreenAPIInstanceID string
	GreenAPIToken      string
	GreenAPITimeout    time.Duration

	// JWT settings
	JWTSecret string

	// Rate limiting (requests per minute)
	WebhookRateLimit int
	APIRateLimit     int

	// NATS settings (optional; empty disables event publishing)
	NATSURL string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),

		// Storage
		DeliveriesFile:    getEnv("DELIVERIES_FILE", "data/deliveries.json"),
		ConversationsFile: getEnv("CONVERSATIONS_FILE", "data/conversations.json"),

		// Duplicate filter
		DedupeWindow:    getDurationEnv("DEDUPE_WINDOW", time.Minute),
		DedupeRetention: getDurationEnv("DEDUPE_RETENTION", 2*time.Minute),

		// Extraction
		ExtractionProvider: getEnv("EXTRACTION_PROVIDER", "openai"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		ExtractionTimeout:  getDurationEnv("EXTRACTION_TIMEOUT", 30*time.Second),
		HistoryLimit:       getIntEnv("HISTORY_LIMIT", 10),

		// Green API
		GreenAPIBaseURL:    getEnv("GREEN_API_BASE_URL", "https://api.green-api.com"),
		GreenAPIInstanceID: getEnv("GREEN_API_INSTANCE_ID", ""),
		GreenAPIToken:      getEnv("GREEN_API_TOKEN", ""),
		GreenAPITimeout:    getDurationEnv("GREEN_API_TIMEOUT", 10*time.Second),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Rate limiting
		WebhookRateLimit: getIntEnv("WEBHOOK_RATE_LIMIT", 300),
		APIRateLimit:     getIntEnv("API_RATE_LIMIT", 60),

		// NATS
		NATSURL: getEnv("NATS_URL", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
