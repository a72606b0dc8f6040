package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads ~/.learnlens/config.yaml and secrets, then applies environment
// overrides. Variables are read from envFiles first; with no files, a .env
// in the working directory is used when present. Process environment always
// wins over file values.
func Load(envFiles ...string) (*LocalConfig, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := LoadLocalConfig()
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with LEARNLENS_* variables and the conventional
// DATABASE_URL and RABBITMQ_URL.
func ApplyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("LEARNLENS_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("LEARNLENS_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("LEARNLENS_LOG_LEVEL", cfg.Daemon.LogLevel)
	cfg.Daemon.RateLimit = getEnvInt("LEARNLENS_RATE_LIMIT", cfg.Daemon.RateLimit)

	cfg.Storage.Driver = getEnv("LEARNLENS_STORAGE", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("LEARNLENS_DATA_PATH", cfg.Storage.Path)
	cfg.Storage.SeedFile = getEnv("LEARNLENS_SEED_FILE", cfg.Storage.SeedFile)
	cfg.Storage.DatabaseURL = getEnv("DATABASE_URL", cfg.Storage.DatabaseURL)

	cfg.Backend.BaseURL = getEnv("LEARNLENS_BACKEND_URL", cfg.Backend.BaseURL)
	cfg.Backend.ProjectID = getEnv("LEARNLENS_PROJECT_ID", cfg.Backend.ProjectID)
	cfg.Backend.PublicKey = getEnv("LEARNLENS_PUBLIC_KEY", cfg.Backend.PublicKey)
	cfg.Backend.TimeoutSeconds = getEnvInt("LEARNLENS_BACKEND_TIMEOUT", cfg.Backend.TimeoutSeconds)

	cfg.Queue.URL = getEnv("RABBITMQ_URL", cfg.Queue.URL)
	cfg.Queue.Enabled = getEnvBool("LEARNLENS_QUEUE", cfg.Queue.Enabled)
	cfg.Queue.Workers = getEnvInt("LEARNLENS_QUEUE_WORKERS", cfg.Queue.Workers)

	cfg.Analytics.DefaultUser = getEnv("LEARNLENS_USER", cfg.Analytics.DefaultUser)
	cfg.Analytics.WeakThreshold = getEnvFloat("LEARNLENS_WEAK_THRESHOLD", cfg.Analytics.WeakThreshold)
	cfg.Analytics.RecentLimit = getEnvInt("LEARNLENS_RECENT_LIMIT", cfg.Analytics.RecentLimit)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
