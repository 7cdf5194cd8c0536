package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	ModelName       string
	GroqAPIKey      string
	AnthropicAPIKey string

	RedisURL string

	// Engine thresholds. Named here rather than buried as literals so
	// deployments can tune them and tests can exercise the boundaries.
	SummaryInterval int
	SummaryBatch    int
	HistoryWindow   int
	StabilizeBelow  int
}

// Load reads configuration from the environment, consulting a .env file
// when present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments use actual env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:     getEnv("LLM_PROVIDER", "groq"),
		ModelName:       getEnv("MODEL_NAME", "llama-3.1-8b-instant"),
		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		SummaryInterval: getEnvInt("SUMMARY_INTERVAL", 5),
		SummaryBatch:    getEnvInt("SUMMARY_BATCH", 10),
		HistoryWindow:   getEnvInt("HISTORY_WINDOW", 10),
		StabilizeBelow:  getEnvInt("STABILIZE_BELOW", 80),
	}

	if cfg.SummaryInterval < 1 {
		return nil, fmt.Errorf("SUMMARY_INTERVAL must be positive, got %d", cfg.SummaryInterval)
	}
	if cfg.HistoryWindow < 1 {
		return nil, fmt.Errorf("HISTORY_WINDOW must be positive, got %d", cfg.HistoryWindow)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
