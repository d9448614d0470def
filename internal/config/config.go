package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	HistoryMemory = "memory"
	HistorySQLite = "sqlite"
	HistoryRedis  = "redis"

	ProviderOpenRouter = "openrouter"
	ProviderNone       = "none"
)

type Config struct {
	HTTPAddr          string
	LogLevel          slog.Level
	LLMProvider       string
	LLMModel          string
	LLMFallbackModels []string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	LLMTimeout        time.Duration
	InterpretTimeout  time.Duration

	ReversedProbability float64
	DrawTTL             time.Duration
	CatalogFile         string

	HistoryBackend string
	HistoryLimit   int
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads the configuration from the environment. Variables from ENV_FILE
// (default .env) are applied first without overriding the real environment;
// a missing file is not an error.
func Load() (Config, error) {
	envFile := envOr("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	c := Config{
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
		LLMProvider:       envOr("LLM_PROVIDER", ProviderOpenRouter),
		LLMModel:          envOr("LLM_MODEL", "qwen/qwen3-4b:free"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMFallbackModels: parseFallbackModels(os.Getenv("LLM_FALLBACK_MODELS")),
		CatalogFile:       os.Getenv("CATALOG_FILE"),
		HistoryBackend:    envOr("HISTORY_BACKEND", HistoryMemory),
		SQLitePath:        envOr("SQLITE_PATH", "data/tarot.db"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if c.LLMTimeout, err = durationEnv("LLM_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if c.InterpretTimeout, err = durationEnv("INTERPRET_TIMEOUT", 90*time.Second); err != nil {
		return Config{}, err
	}
	if c.DrawTTL, err = durationEnv("DRAW_TTL", 2*time.Hour); err != nil {
		return Config{}, err
	}
	if c.ReversedProbability, err = floatEnv("REVERSED_PROBABILITY", 0.3); err != nil {
		return Config{}, err
	}
	if c.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 10); err != nil {
		return Config{}, err
	}
	if c.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if c.HistoryLimit, err = intEnv("HISTORY_LIMIT", 50); err != nil {
		return Config{}, err
	}
	if c.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.LLMProvider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER=openrouter")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.HistoryBackend {
	case HistoryMemory, HistorySQLite, HistoryRedis:
	default:
		return fmt.Errorf("invalid HISTORY_BACKEND %q", c.HistoryBackend)
	}

	if math.IsNaN(c.ReversedProbability) || c.ReversedProbability < 0 || c.ReversedProbability > 1 {
		return fmt.Errorf("REVERSED_PROBABILITY must be within [0,1], got %v", c.ReversedProbability)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.DrawTTL <= 0 || c.InterpretTimeout <= 0 || c.LLMTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func parseFallbackModels(s string) []string {
	if s == "" {
		return nil
	}
	var models []string
	for _, m := range strings.Split(s, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			models = append(models, m)
		}
	}
	return models
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
