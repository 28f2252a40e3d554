package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Env         string
	LogLevel    string
	MetricsAddr string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	SlotMinutes int
	CodeTTL     time.Duration

	SMSTimeout      time.Duration
	OutboxEnabled   bool
	OutboxBatchSize int
	OutboxInterval  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		SlotMinutes: getEnvAsInt("SLOT_MINUTES", 30),
		CodeTTL:     getEnvAsDuration("CONFIRMATION_CODE_TTL", 10*time.Minute),

		SMSTimeout:      getEnvAsDuration("SMS_TIMEOUT", 15*time.Second),
		OutboxEnabled:   getEnvAsBool("OUTBOX_ENABLED", true),
		OutboxBatchSize: getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
		OutboxInterval:  getEnvAsDuration("OUTBOX_INTERVAL", 2*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
