package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL      string
	TelegramToken    string
	LogLevel         string
	LogFormat        string
	Port             string
	PrometheusPort   string
	AuditInterval    time.Duration
	CatalogCacheSize int64
	// CatalogSets seeds the in-memory catalog when DatabaseURL is empty.
	CatalogSets []string
	// APITokens maps bearer tokens to owner IDs. When empty the HTTP API
	// trusts the X-User-ID header instead.
	APITokens map[string]int64
}

// Load loads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
		Port:           getEnvOrDefault("PORT", "8080"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		CatalogSets:    splitList(os.Getenv("CATALOG_SETS")),
	}

	var err error
	if cfg.AuditInterval, err = time.ParseDuration(getEnvOrDefault("AUDIT_INTERVAL", "10m")); err != nil {
		return nil, fmt.Errorf("AUDIT_INTERVAL must be a duration: %w", err)
	}
	if cfg.AuditInterval <= 0 {
		return nil, fmt.Errorf("AUDIT_INTERVAL must be positive, got %s", cfg.AuditInterval)
	}

	if cfg.APITokens, err = parseTokens(os.Getenv("API_TOKENS")); err != nil {
		return nil, err
	}

	if cfg.CatalogCacheSize, err = strconv.ParseInt(getEnvOrDefault("CATALOG_CACHE_SIZE", "10000"), 10, 64); err != nil {
		return nil, fmt.Errorf("CATALOG_CACHE_SIZE must be an integer: %w", err)
	}

	return cfg, nil
}

// UsesBearerTokens reports whether the HTTP API authenticates with bearer
// tokens.
func (c *Config) UsesBearerTokens() bool {
	return len(c.APITokens) > 0
}

// UsesMemoryStore reports whether persistence is deferred to the in-memory
// store.
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseTokens reads "token=ownerID" pairs separated by commas.
func parseTokens(raw string) (map[string]int64, error) {
	tokens := make(map[string]int64)
	for _, pair := range splitList(raw) {
		token, id, ok := strings.Cut(pair, "=")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return nil, fmt.Errorf("API_TOKENS entry %q must be token=owner_id", pair)
		}
		ownerID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil || ownerID <= 0 {
			return nil, fmt.Errorf("API_TOKENS entry %q has an invalid owner id", pair)
		}
		tokens[token] = ownerID
	}
	return tokens, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
