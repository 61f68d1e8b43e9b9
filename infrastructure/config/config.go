package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all client configuration. It is read once at startup; there
// is no runtime reload surface.
type Config struct {
	// Remote API
	APIBaseURL     string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`

	// Session lifecycle
	SessionCheckInterval time.Duration `validate:"gt=0"`
	LogoutCooldown       time.Duration `validate:"gt=0"`

	// Local persisted state
	StateDir      string `validate:"required"`
	StoragePrefix string `validate:"required"`

	// Environment and feature flags
	Environment string
	LogLevel    string
	DemoMode    bool
	Debug       bool

	// Mock API server (cmd/apimock and demo mode)
	MockListenAddr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIBaseURL:     getEnv("PW_API_BASE_URL", "https://api.prospectwatch.io/v1"),
		RequestTimeout: getEnvDuration("PW_REQUEST_TIMEOUT", 15*time.Second),

		SessionCheckInterval: getEnvDuration("PW_SESSION_CHECK_INTERVAL", 5*time.Minute),
		LogoutCooldown:       getEnvDuration("PW_LOGOUT_COOLDOWN", 2*time.Second),

		StateDir:      getEnv("PW_STATE_DIR", defaultStateDir()),
		StoragePrefix: getEnv("PW_STORAGE_PREFIX", "prospectwatch."),

		Environment: getEnv("PW_ENVIRONMENT", "development"),
		LogLevel:    getEnv("PW_LOG_LEVEL", "info"),
		DemoMode:    getEnvBool("PW_DEMO_MODE", false),
		Debug:       getEnvBool("PW_DEBUG", false),

		MockListenAddr: getEnv("PW_MOCK_LISTEN_ADDR", ":8989"),
	}

	// Demo mode swaps the production API for the local mock.
	if cfg.DemoMode {
		cfg.APIBaseURL = getEnv("PW_DEMO_API_BASE_URL", "http://localhost:8989/v1")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".prospectwatch"
	}
	return filepath.Join(home, ".prospectwatch")
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
