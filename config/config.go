package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Ledger backend: "memory" or "redis"
	LedgerBackend string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Hold configuration
	HoldTTL                time.Duration
	MaxHoldTTL             time.Duration
	DefaultMinPerPurchaser int
	DefaultMaxPerPurchaser int

	// Reaper configuration
	ReaperInterval time.Duration

	// Hold attempts allowed per client per minute
	HoldRateLimit int

	// Pricing configuration
	Currency              string
	VATRate               float64
	CommissionRate        float64
	CommissionMinFee      float64
	CommissionVATIncluded bool

	// Payment webhook verification (bcrypt hash of the shared secret)
	WebhookSecretHash string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Ledger
		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Holds
		HoldTTL:                getEnvAsDuration("HOLD_TTL", "15m"),
		MaxHoldTTL:             getEnvAsDuration("MAX_HOLD_TTL", "1h"),
		DefaultMinPerPurchaser: getEnvAsInt("DEFAULT_MIN_PER_USER", 1),
		DefaultMaxPerPurchaser: getEnvAsInt("DEFAULT_MAX_PER_USER", 5),

		// Reaper
		ReaperInterval: getEnvAsDuration("REAPER_INTERVAL", "30s"),

		// Rate limiting
		HoldRateLimit: getEnvAsInt("HOLD_RATE_LIMIT", 30),

		// Pricing
		Currency:              getEnv("CURRENCY", "ETB"),
		VATRate:               getEnvAsFloat("VAT_RATE", 0.15),
		CommissionRate:        getEnvAsFloat("COMMISSION_RATE", 0.10),
		CommissionMinFee:      getEnvAsFloat("COMMISSION_MIN_FEE", 5),
		CommissionVATIncluded: getEnvAsBool("COMMISSION_VAT_INCLUDED", true),

		// Webhook
		WebhookSecretHash: getEnv("WEBHOOK_SECRET_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
