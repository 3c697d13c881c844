package config

import (
	"os"
	"strconv"
	"time"
)

// WAHAConfig holds connection settings for the external WAHA gateway.
type WAHAConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RetryAttempts int
}

// TurnsConfig points at the external turn-scheduling service.
type TurnsConfig struct {
	BaseURL string
	APIKey  string
}

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Port         string
	Env          string
	JWTSecret    string
	TenantPrefix string

	// Optional Postgres DSN. When empty the session store is in-memory.
	DatabaseDSN string

	// Webhook worker queue size per tenant.
	WebhookQueueSize int

	WAHA  WAHAConfig
	Turns TurnsConfig
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "3004"),
		Env:              getEnv("APP_ENV", "development"),
		JWTSecret:        getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
		TenantPrefix:     getEnv("TENANT_SESSION_PREFIX", "tenant_"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		WebhookQueueSize: getEnvInt("WEBHOOK_QUEUE_SIZE", 64),
		WAHA: WAHAConfig{
			BaseURL:       getEnv("WAHA_BASE_URL", "http://localhost:3000"),
			APIKey:        os.Getenv("WAHA_API_KEY"),
			Timeout:       time.Duration(getEnvInt("WAHA_TIMEOUT_MS", 30000)) * time.Millisecond,
			RetryAttempts: getEnvInt("WAHA_RETRY_ATTEMPTS", 3),
		},
		Turns: TurnsConfig{
			BaseURL: getEnv("TURNS_SERVICE_URL", "http://turns-service:3003"),
			APIKey:  os.Getenv("TURNS_API_KEY"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
