// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	visionKey := cfg.Vision.APIKey
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Vision        VisionConfig        `yaml:"vision"`
	Matching      MatchingConfig      `yaml:"matching"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// VisionConfig holds vision/analysis API configuration
type VisionConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// MatchingConfig holds receipt-matching settings
type MatchingConfig struct {
	AmountWeight      float64 `yaml:"amount_weight"`
	MerchantWeight    float64 `yaml:"merchant_weight"`
	DateWeight        float64 `yaml:"date_weight"`
	LookbackDays      int     `yaml:"lookback_days"`
	DateToleranceDays int     `yaml:"date_tolerance_days"`
	MinScore          float64 `yaml:"min_score"`
	MaxResults        int     `yaml:"max_results"`
}

// ReconcileConfig holds split-reconciliation settings.
// The tolerance is configurable rather than hard-coded; the default is
// one cent.
type ReconcileConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${VISION_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("FINANCE_DB_PATH", "finance.db"),
		},
		Vision: VisionConfig{
			APIKey:  os.Getenv("VISION_API_KEY"),
			Model:   getEnv("VISION_MODEL", "gpt-4o"),
			BaseURL: os.Getenv("VISION_BASE_URL"),
		},
		Matching: MatchingConfig{
			LookbackDays: getEnvInt("MATCH_LOOKBACK_DAYS", 30),
		},
		Reconcile: ReconcileConfig{
			Tolerance: getEnvFloat("RECONCILE_TOLERANCE", 0.01),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values with sensible defaults
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "finance.db"
	}
	if c.Vision.Model == "" {
		c.Vision.Model = "gpt-4o"
	}
	if c.Matching.AmountWeight == 0 && c.Matching.MerchantWeight == 0 && c.Matching.DateWeight == 0 {
		c.Matching.AmountWeight = 0.5
		c.Matching.MerchantWeight = 0.3
		c.Matching.DateWeight = 0.2
	}
	if c.Matching.LookbackDays == 0 {
		c.Matching.LookbackDays = 30
	}
	if c.Matching.DateToleranceDays == 0 {
		c.Matching.DateToleranceDays = 7
	}
	if c.Matching.MinScore == 0 {
		c.Matching.MinScore = 0.4
	}
	if c.Matching.MaxResults == 0 {
		c.Matching.MaxResults = 5
	}
	if c.Reconcile.Tolerance == 0 {
		c.Reconcile.Tolerance = 0.01
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}
