package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDriver      = "sqlite3"
	defaultDatabaseURL = "bracket.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	defaultPort        = 8080
	defaultCacheTTL    = 30 * time.Second
)

type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	ServerPort     int
	// RedisURL is optional; the bracket cache is off without it
	RedisURL string
	CacheTTL time.Duration
	LogLevel slog.Level
}

// Load reads the configuration from the environment after loading envFile,
// if it exists. Missing files are not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DatabaseDriver: getenv("DATABASE_DRIVER", defaultDriver),
		DatabaseURL:    getenv("DATABASE_URL", defaultDatabaseURL),
		ServerPort:     defaultPort,
		RedisURL:       os.Getenv("REDIS_URL"),
		CacheTTL:       defaultCacheTTL,
		LogLevel:       slog.LevelInfo,
	}

	if cfg.DatabaseDriver != "sqlite3" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("DATABASE_DRIVER must be sqlite3 or postgres, got %q", cfg.DatabaseDriver)
	}

	if portStr := os.Getenv("SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		cfg.ServerPort = port
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL environment variable: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("CACHE_TTL must be positive, got %s", d)
		}
		cfg.CacheTTL = d
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
