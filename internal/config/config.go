// Package config reads runtime configuration from the environment, loading a
// local .env file first when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ksred/bitkub-trader/internal/engine"
)

type Config struct {
	Env            string
	Debug          bool
	DatabasePath   string
	Port           string
	JWTSecret      string
	APIKey         string
	APISecret      string
	WorkerInterval time.Duration
}

// Load reads the configuration. Missing keys fall back to development
// defaults; a missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:            getEnv("ENV", "development"),
		Debug:          os.Getenv("DEBUG") == "true",
		DatabasePath:   getEnv("DATABASE_PATH", "trader.db"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "trader-secret-key"),
		APIKey:         getEnv("API_KEY", "test-api-key"),
		APISecret:      getEnv("API_SECRET", "test-api-secret"),
		WorkerInterval: intervalFromEnv(),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intervalFromEnv() time.Duration {
	raw := os.Getenv("WORKER_INTERVAL_MS")
	if raw == "" {
		return engine.DefaultInterval
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return engine.DefaultInterval
	}
	return time.Duration(ms) * time.Millisecond
}
