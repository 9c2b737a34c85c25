package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// Sentiment classifier (APILayer)
	SentimentAPIKey     string
	SentimentAPIURL     string
	SentimentTimeoutSec int

	// Spam classifier (APILayer)
	SpamAPIKey     string
	SpamAPIURL     string
	SpamThreshold  int
	SpamTimeoutSec int

	// Category classifier (OpenAI)
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Geolocation
	IPAPIURL        string
	GeoTimeoutSec   int
	GeoCacheTTLHour int

	// Reconciliation worker pool
	ReconcileWorkers    int
	ReconcileQueueSize  int
	ReconcileTimeoutSec int

	// Submission rate limiting
	SubmitRateLimit  int
	SubmitRateWindow time.Duration

	// Server
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Sentiment
		SentimentAPIKey:     getEnv("SENTIMENT_API_KEY", ""),
		SentimentAPIURL:     getEnv("SENTIMENT_API_URL", "https://api.apilayer.com/sentiment/analysis"),
		SentimentTimeoutSec: getEnvInt("SENTIMENT_TIMEOUT_SEC", 10),

		// Spam
		SpamAPIKey:     getEnv("SPAM_API_KEY", ""),
		SpamAPIURL:     getEnv("SPAM_API_URL", "https://api.apilayer.com/spamchecker"),
		SpamThreshold:  getEnvInt("SPAM_THRESHOLD", 3),
		SpamTimeoutSec: getEnvInt("SPAM_TIMEOUT_SEC", 5),

		// Category
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 50),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 30),

		// Geolocation
		IPAPIURL:        getEnv("IP_API_URL", "http://ip-api.com/json"),
		GeoTimeoutSec:   getEnvInt("GEO_TIMEOUT_SEC", 5),
		GeoCacheTTLHour: getEnvInt("GEO_CACHE_TTL_HOUR", 24),

		// Reconciliation
		ReconcileWorkers:    getEnvInt("RECONCILE_WORKERS", 4),
		ReconcileQueueSize:  getEnvInt("RECONCILE_QUEUE_SIZE", 256),
		ReconcileTimeoutSec: getEnvInt("RECONCILE_TIMEOUT_SEC", 15),

		// Rate limiting
		SubmitRateLimit:  getEnvInt("SUBMIT_RATE_LIMIT", 30),
		SubmitRateWindow: time.Duration(getEnvInt("SUBMIT_RATE_WINDOW_SEC", 60)) * time.Second,

		// Server
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 30)) * time.Second,
		AllowedOrigins:  getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
