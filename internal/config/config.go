// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml, optional)
//  3. Default values
//
// A .env or .env.txt file in the working directory is loaded into the
// process environment before anything else, so dotenv deployments behave
// exactly like exported variables.
//
// Secrets (API keys, database URL) are masked in MarshalJSON/String.
// Validation is fail-fast: a missing required value aborts startup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingOpenAIKey indicates OPENAI_API_KEY is not set.
	ErrMissingOpenAIKey = errors.New("missing OpenAI API key")

	// ErrMissingQdrantURL indicates QDRANT_URL is not set.
	ErrMissingQdrantURL = errors.New("missing Qdrant URL")

	// ErrMissingCollection indicates QDRANT_COLLECTION is not set.
	ErrMissingCollection = errors.New("missing Qdrant collection")

	// ErrInvalidTopK indicates the default top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidSnippetChars indicates the snippet limit is not positive.
	ErrInvalidSnippetChars = errors.New("invalid snippet length")

	// ErrInvalidTimeout indicates a non-positive upstream timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Top-k bounds documented at the API boundary.
const (
	MinTopK = 1
	MaxTopK = 12
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// OpenAI configuration
	OpenAIAPIKey   string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	ChatModel      string `mapstructure:"chat_model" json:"chat_model"`
	EmbedModel     string `mapstructure:"embed_model" json:"embed_model"`
	OpenAITimeoutS int    `mapstructure:"openai_timeout_secs" json:"openai_timeout_secs"`

	// Qdrant configuration
	QdrantURL      string `mapstructure:"qdrant_url" json:"qdrant_url"`
	QdrantAPIKey   string `mapstructure:"qdrant_api_key" json:"qdrant_api_key"` // SENSITIVE: masked in MarshalJSON
	Collection     string `mapstructure:"qdrant_collection" json:"qdrant_collection"`
	QdrantTimeoutS int    `mapstructure:"qdrant_timeout_secs" json:"qdrant_timeout_secs"`

	// Retrieval tunables
	DefaultTopK     int `mapstructure:"top_k" json:"top_k"`
	MaxSnippetChars int `mapstructure:"snippet_chars" json:"snippet_chars"`

	// Feedback store. Empty keeps the in-memory store.
	DatabaseURL string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON

	// HTTP server
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	loadDotenv()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; env and defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using environment and defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotenv loads .env (or .env.txt as a fallback) from the working
// directory into the process environment. Existing variables win.
func loadDotenv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
		return
	}
	if _, err := os.Stat(".env.txt"); err == nil {
		_ = godotenv.Load(".env.txt")
	}
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chat_model", "gpt-4o-mini")
	v.SetDefault("embed_model", "text-embedding-3-large")
	v.SetDefault("openai_timeout_secs", 120)

	v.SetDefault("qdrant_timeout_secs", 60)

	v.SetDefault("top_k", 6)
	v.SetDefault("snippet_chars", 700)

	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("rate_burst", 60)
	v.SetDefault("trust_proxy", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// Service credentials keep their upstream conventional names; everything
// operational is prefixed with ASSISTANT_.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a bug, not a runtime error.
	mustBind := func(key string, envVar ...string) {
		if err := v.BindEnv(append([]string{key}, envVar...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("chat_model", "OPENAI_CHAT_MODEL")
	mustBind("embed_model", "EMBED_MODEL")
	mustBind("openai_timeout_secs", "OPENAI_TIMEOUT_SECS")

	mustBind("qdrant_url", "QDRANT_URL")
	mustBind("qdrant_api_key", "QDRANT_API_KEY")
	mustBind("qdrant_collection", "QDRANT_COLLECTION")
	mustBind("qdrant_timeout_secs", "QDRANT_TIMEOUT_SECS")

	mustBind("top_k", "RAG_TOP_K")
	mustBind("snippet_chars", "RAG_SNIPPET_CHARS")

	mustBind("database_url", "DATABASE_URL")

	mustBind("addr", "ASSISTANT_ADDR")
	mustBind("cors_origins", "ASSISTANT_CORS_ORIGINS")
	mustBind("rate_burst", "ASSISTANT_RATE_BURST")
	mustBind("trust_proxy", "ASSISTANT_TRUST_PROXY")

	mustBind("log_level", "ASSISTANT_LOG_LEVEL")
	mustBind("log_json", "ASSISTANT_LOG_JSON")
}

// Validate checks the configuration for required values and sane ranges.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingOpenAIKey)
	}
	if c.QdrantURL == "" {
		return fmt.Errorf("%w: set QDRANT_URL", ErrMissingQdrantURL)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: set QDRANT_COLLECTION", ErrMissingCollection)
	}
	if c.DefaultTopK < MinTopK || c.DefaultTopK > MaxTopK {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidTopK, c.DefaultTopK, MinTopK, MaxTopK)
	}
	if c.MaxSnippetChars <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSnippetChars, c.MaxSnippetChars)
	}
	if c.OpenAITimeoutS <= 0 || c.QdrantTimeoutS <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidTimeout)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debug
// utility. This defends against accidental logging, not compromised logs.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.QdrantAPIKey = maskSecret(a.QdrantAPIKey)
	a.DatabaseURL = maskSecret(a.DatabaseURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
