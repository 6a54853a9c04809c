package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/data-power-io/partsquote/libs/logging"
)

// Keys read from the environment or the config file.
var envVars = []string{
	"PORT",
	"GRPC_PORT",
	"POSTGRES_HOST",
	"POSTGRES_PORT",
	"POSTGRES_DATABASE",
	"POSTGRES_USERNAME",
	"POSTGRES_PASSWORD",
	"POSTGRES_SSLMODE",
	"POSTGRES_CONNECT_TIMEOUT",
	"POSTGRES_STATEMENT_TIMEOUT",
	"POSTGRES_DOCUMENT_ID",
	"SQLITE_PATH",
	"S3_ENDPOINT",
	"S3_ACCESS_KEY_ID",
	"S3_SECRET_ACCESS_KEY",
	"S3_BUCKET",
	"S3_USE_SSL",
	"S3_REGION",
	"S3_PUBLIC_URL",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_OUTPUT",
	"LOG_DEVELOPMENT",
	"VAT_RATE",
	"SESSION_TTL",
	"SESSION_CLEANUP_INTERVAL",
	"SHUTDOWN_TIMEOUT",
}

type Config struct {
	values map[string]string
}

// Load reads the optional YAML file at path, then the environment. Environment
// values win over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{
		values: make(map[string]string),
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromMap builds a config from explicit values, skipping the environment.
func FromMap(values map[string]string) *Config {
	cfg := &Config{values: make(map[string]string, len(values))}
	for k, v := range values {
		cfg.values[k] = v
	}
	return cfg
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case map[string]interface{}, []interface{}:
			return fmt.Errorf("config key '%s' must be a scalar", k)
		default:
			c.values[k] = fmt.Sprint(v)
		}
	}
	return nil
}

func (c *Config) loadFromEnv() {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			c.values[envVar] = value
		}
	}
}

// Set overrides a single key, e.g. from a command line flag.
func (c *Config) Set(key, value string) {
	c.values[key] = value
}

func (c *Config) GetString(key, defaultValue string) string {
	if value, exists := c.values[key]; exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetInt(key string, defaultValue int) int {
	if value, exists := c.values[key]; exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := c.values[key]; exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func (c *Config) GetBool(key string, defaultValue bool) bool {
	if value, exists := c.values[key]; exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// PostgresEnabled reports whether a cloud document store is configured.
func (c *Config) PostgresEnabled() bool {
	return c.GetString("POSTGRES_DATABASE", "") != ""
}

func (c *Config) GetConnectionConfig() map[string]string {
	return map[string]string{
		"host":              c.GetString("POSTGRES_HOST", "localhost"),
		"port":              c.GetString("POSTGRES_PORT", "5432"),
		"database":          c.GetString("POSTGRES_DATABASE", ""),
		"username":          c.GetString("POSTGRES_USERNAME", ""),
		"password":          c.GetString("POSTGRES_PASSWORD", ""),
		"sslmode":           c.GetString("POSTGRES_SSLMODE", "prefer"),
		"connect_timeout":   c.GetString("POSTGRES_CONNECT_TIMEOUT", "10s"),
		"statement_timeout": c.GetString("POSTGRES_STATEMENT_TIMEOUT", "30s"),
		"document_id":       c.GetString("POSTGRES_DOCUMENT_ID", "main"),
	}
}

func (c *Config) SQLitePath() string {
	return c.GetString("SQLITE_PATH", "data/partsquote.db")
}

// S3Enabled reports whether diagram images go to an object store.
func (c *Config) S3Enabled() bool {
	return c.GetString("S3_BUCKET", "") != ""
}

func (c *Config) GetS3Config() map[string]string {
	return map[string]string{
		"endpoint":          c.GetString("S3_ENDPOINT", ""),
		"access_key_id":     c.GetString("S3_ACCESS_KEY_ID", ""),
		"secret_access_key": c.GetString("S3_SECRET_ACCESS_KEY", ""),
		"bucket":            c.GetString("S3_BUCKET", ""),
		"use_ssl":           c.GetString("S3_USE_SSL", "true"),
		"region":            c.GetString("S3_REGION", "us-east-1"),
		"public_url":        c.GetString("S3_PUBLIC_URL", ""),
	}
}

func (c *Config) GetLoggingConfig() logging.Config {
	return logging.Config{
		Level:       c.GetString("LOG_LEVEL", "info"),
		Format:      c.GetString("LOG_FORMAT", "json"),
		OutputPath:  c.GetString("LOG_OUTPUT", ""),
		Development: c.GetBool("LOG_DEVELOPMENT", false),
	}
}

// VATRate returns the VAT fraction applied to quote subtotals.
func (c *Config) VATRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.GetString("VAT_RATE", "0.1"))
	if err != nil {
		return decimal.New(1, -1)
	}
	return rate
}

func (c *Config) SessionTTL() time.Duration {
	return c.GetDuration("SESSION_TTL", 2*time.Hour)
}

func (c *Config) SessionCleanupInterval() time.Duration {
	return c.GetDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return c.GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
}

// Validate rejects values that would otherwise fall back to defaults
// silently.
func (c *Config) Validate() error {
	for _, key := range []string{"PORT", "GRPC_PORT", "POSTGRES_PORT"} {
		if value, ok := c.values[key]; ok {
			port, err := strconv.Atoi(value)
			if err != nil || port < 0 || port > 65535 {
				return fmt.Errorf("invalid value '%s' for %s", value, key)
			}
		}
	}

	for _, key := range []string{"POSTGRES_CONNECT_TIMEOUT", "POSTGRES_STATEMENT_TIMEOUT", "SESSION_TTL", "SESSION_CLEANUP_INTERVAL", "SHUTDOWN_TIMEOUT"} {
		if value, ok := c.values[key]; ok {
			if d, err := time.ParseDuration(value); err != nil || d <= 0 {
				return fmt.Errorf("invalid duration '%s' for %s", value, key)
			}
		}
	}

	if value, ok := c.values["VAT_RATE"]; ok {
		rate, err := decimal.NewFromString(value)
		if err != nil || rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("invalid VAT rate '%s': must be a fraction in [0, 1)", value)
		}
	}

	if c.S3Enabled() {
		for _, key := range []string{"S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"} {
			if c.GetString(key, "") == "" {
				return fmt.Errorf("required field '%s' is missing or empty", key)
			}
		}
	}
	return nil
}
