package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// PricingMode selects which pricing strategy the server runs with.
type PricingMode string

const (
	// PricingModeStatic resolves prices from the bundled pricing file.
	PricingModeStatic PricingMode = "static"
	// PricingModeDB resolves prices from the price_rules table.
	PricingModeDB PricingMode = "db"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	PricingMode PricingMode
	PricingFile string

	CartCacheTTL time.Duration
	RuleCacheTTL time.Duration

	RateLimitEnabled bool
	RateLimitRPM     int

	LogLevel         string
	LogFormat        string
	MetricsNamespace string

	TracingEnabled  bool
	TracingEndpoint string
	TracingRatio    float64
}

// Load reads configuration from environment variables and an optional .env
// file. DATABASE_URL and REDIS_URL may be empty; the server then runs with
// in-memory storage and no result cache, which is intended for local
// development and tests only.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		PricingMode:        PricingMode(valueOrDefault(strings.ToLower(k.String("PRICING_MODE")), string(PricingModeStatic))),
		PricingFile:        valueOrDefault(k.String("PRICING_FILE"), "config/pricing.yaml"),
		CartCacheTTL:       parseDuration(k.String("CART_CACHE_TTL"), "24h"),
		RuleCacheTTL:       parseDuration(k.String("RULE_CACHE_TTL"), "5m"),
		RateLimitEnabled:   parseBool(valueOrDefault(k.String("RATE_LIMIT_ENABLED"), "true")),
		RateLimitRPM:       parseInt(k.String("RATE_LIMIT_RPM"), 120),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "skycommerce"),
		TracingEnabled:     parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint:    strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingRatio:       parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1.0),
	}

	switch cfg.PricingMode {
	case PricingModeStatic, PricingModeDB:
	default:
		return nil, fmt.Errorf("unsupported PRICING_MODE: %q", cfg.PricingMode)
	}
	if cfg.PricingMode == PricingModeDB && cfg.DatabaseURL == "" {
		return nil, errors.New("PRICING_MODE=db requires DATABASE_URL")
	}

	return cfg, nil
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
