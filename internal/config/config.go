package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	RedisURL       string

	// CaptchaEnabled makes a verified Turnstile token mandatory for every vote
	CaptchaEnabled     bool
	TurnstileSecretKey string
	TurnstileVerifyURL string

	AdminPasswordHash string
	JWTSecret         string
	AdminTokenTTL     time.Duration

	DashboardCacheTTL time.Duration

	// StrictTrackLimit serializes inserts per (voter, track) so the
	// per-track budget cannot be overrun by concurrent submissions
	StrictTrackLimit bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("ENVIRONMENT", "production"),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "trackvote.db"),
		RedisURL:           getEnv("REDIS_URL", ""),
		CaptchaEnabled:     getBoolEnv("CAPTCHA_ENABLED", false),
		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
		TurnstileVerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AdminTokenTTL:      getDurationEnv("ADMIN_TOKEN_TTL", 12*time.Hour),
		DashboardCacheTTL:  getDurationEnv("DASHBOARD_CACHE_TTL", 5*time.Minute),
		StrictTrackLimit:   getBoolEnv("STRICT_TRACK_LIMIT", false),
	}, nil
}

// IsDevelopment reports whether the service runs in a local environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv accepts Go duration strings ("90s", "5m")
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
