package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	DefaultDatabase = "lunch.sqlite"
	DefaultLogLevel = "info"
)

// Config holds the application configuration
type Config struct {
	Database string
	LogLevel string
}

// LoadConfig loads configuration from a .env file, environment variables or defaults
func LoadConfig() *Config {
	// A missing .env is fine, the environment and defaults still apply.
	_ = godotenv.Load()

	return &Config{
		Database: getEnv("LUNCHBOOK_DATABASE", DefaultDatabase),
		LogLevel: getEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

// Level converts LogLevel into a zerolog level. An empty value means info;
// an unrecognized one returns info together with the parse error.
func (c *Config) Level() (zerolog.Level, error) {
	raw := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
