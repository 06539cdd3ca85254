package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-driven setting the core reads at startup.
type Config struct {
	ServerHost         string
	ServerPort         string
	CORSAllowedOrigins []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleAPIURL       string
	GoogleTokenURL     string
	GoogleAPIScope     string
	TokenCacheDuration time.Duration

	RateLimitSingleRPM int
	RateLimitBatchRPM  int
	MaxBatchSize       int
}

// Load reads the process environment into a Config, applying the
// protocol's documented defaults for anything unset.
func Load() *Config {
	return &Config{
		ServerHost:         getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:         getEnv("SERVER_PORT", "3000"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleAPIURL:       getEnv("GOOGLE_API_URL", "https://passwordsleakcheck-pa.googleapis.com/v1/leaks:lookupSingle"),
		GoogleTokenURL:     getEnv("GOOGLE_TOKEN_URL", "https://www.googleapis.com/oauth2/v4/token"),
		GoogleAPIScope:     getEnv("GOOGLE_API_SCOPE", "https://www.googleapis.com/auth/identity.passwords.leak.check"),
		TokenCacheDuration: getEnvSeconds("TOKEN_CACHE_DURATION", 3000),

		RateLimitSingleRPM: getEnvInt("RATE_LIMIT_SINGLE_RPM", 60),
		RateLimitBatchRPM:  getEnvInt("RATE_LIMIT_BATCH_RPM", 10),
		MaxBatchSize:       getEnvInt("MAX_BATCH_SIZE", 10000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
