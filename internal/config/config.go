// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Metrics backends.
const (
	MetricsBackendPrometheus = "prometheus"
	MetricsBackendMemory     = "memory"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "dev-secret-change-me"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Persistence: "postgres" or "memory"
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis). Optional; the operation cache is disabled when empty.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Writes wait on image generation.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 8MB, face images arrive inline)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"8388608"`

	// Tokens
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`

	// Credits granted at registration
	SignupBonus int64 `env:"SIGNUP_BONUS" envDefault:"100"`

	// Providers. A provider is enabled when its API key is set.
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIImageCost    int64  `env:"OPENAI_IMAGE_COST" envDefault:"10"`
	ReplicateAPIKey    string `env:"REPLICATE_API_KEY"`
	ReplicateModel     string `env:"REPLICATE_MODEL" envDefault:"black-forest-labs/flux-schnell"`
	ReplicateImageCost int64  `env:"REPLICATE_IMAGE_COST" envDefault:"5"`
	GeminiAPIKey       string `env:"GEMINI_API_KEY"`
	GeminiImageCost    int64  `env:"GEMINI_IMAGE_COST" envDefault:"5"`

	MaxConcurrentGenerations int64 `env:"MAX_CONCURRENT_GENERATIONS" envDefault:"8"`

	// Object storage (DigitalOcean Spaces). Uploads stay in memory when the bucket is unset.
	SpacesEndpoint        string `env:"DO_SPACES_ENDPOINT"`
	SpacesRegion          string `env:"DO_SPACES_REGION"`
	SpacesBucket          string `env:"DO_SPACES_BUCKET"`
	SpacesAccessKeyID     string `env:"DO_SPACES_ACCESS_KEY_ID"`
	SpacesSecretAccessKey string `env:"DO_SPACES_SECRET_ACCESS_KEY"`

	// Metrics: "prometheus" serves the client_golang registry, "memory"
	// renders in-process counters.
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsBackend string `env:"METRICS_BACKEND" envDefault:"prometheus"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SpacesEnabled reports whether object storage is configured.
func (c *Config) SpacesEnabled() bool {
	return c.SpacesBucket != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER is postgres"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.SignupBonus < 0 {
		errs = append(errs, errors.New("SIGNUP_BONUS must not be negative"))
	}
	for name, cost := range map[string]int64{
		"OPENAI_IMAGE_COST":    c.OpenAIImageCost,
		"REPLICATE_IMAGE_COST": c.ReplicateImageCost,
		"GEMINI_IMAGE_COST":    c.GeminiImageCost,
	} {
		if cost <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.SpacesEnabled() && (c.SpacesEndpoint == "" || c.SpacesAccessKeyID == "" || c.SpacesSecretAccessKey == "") {
		errs = append(errs, errors.New("DO_SPACES_ENDPOINT and credentials are required when DO_SPACES_BUCKET is set"))
	}

	if c.MetricsEnabled && c.MetricsBackend != MetricsBackendPrometheus && c.MetricsBackend != MetricsBackendMemory {
		errs = append(errs, fmt.Errorf("unknown METRICS_BACKEND %q", c.MetricsBackend))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
