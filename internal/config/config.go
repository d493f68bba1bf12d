// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production"). Selects the log format.
	Env string `mapstructure:"APP_ENV"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// StoreDriver is "memory" or "postgres". Defaults from DatabaseURL.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// EngineConfigFile is an optional YAML file with score weights and rule thresholds.
	EngineConfigFile string `mapstructure:"ENGINE_CONFIG_FILE"`
	// GuardrailPolicyDir is an optional directory of .rego files with supplementary guardrails.
	GuardrailPolicyDir string `mapstructure:"GUARDRAIL_POLICY_DIR"`
	// HistoryDays caps the check-in and plan history read per plan (1–31); default 7.
	// A value below the engine's look-back windows is rejected when the engine config is validated.
	HistoryDays int `mapstructure:"HISTORY_DAYS"`
	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTLPEndpoint is the OTLP gRPC collector; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE_DRIVER", "")
	v.SetDefault("ENGINE_CONFIG_FILE", "")
	v.SetDefault("GUARDRAIL_POLICY_DIR", "")
	v.SetDefault("HISTORY_DAYS", 7)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "bioadaptive-planner")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = StoreMemory
		if c.DatabaseURL != "" {
			c.StoreDriver = StorePostgres
		}
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.HistoryDays < 1 || c.HistoryDays > 31 {
		return errors.New("config: HISTORY_DAYS must be between 1 and 31")
	}
	if c.ServiceName == "" {
		c.ServiceName = "bioadaptive-planner"
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}
