package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the environment-driven settings. Every field has a BYWATER_*
// variable; a .env file in the working directory is loaded first if present.
type Config struct {
	Port               string
	DBPath             string
	BaseURL            string
	LogLevel           string
	GoogleClientID     string
	GoogleClientSecret string
	SecureCookies      bool
}

// Load reads configuration from .env and the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:               getenv("BYWATER_PORT", "8080"),
		DBPath:             getenv("BYWATER_DB_PATH", "bywater.db"),
		BaseURL:            getenv("BYWATER_BASE_URL", "http://localhost:8080"),
		LogLevel:           getenv("BYWATER_LOG_LEVEL", "info"),
		GoogleClientID:     os.Getenv("BYWATER_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("BYWATER_GOOGLE_CLIENT_SECRET"),
		SecureCookies:      os.Getenv("BYWATER_SECURE_COOKIES") == "true",
	}
}

// RedirectURL is the OAuth callback endpoint under the configured base URL.
func (c Config) RedirectURL() string {
	return c.BaseURL + "/auth/google/callback"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
