package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App    AppConfig
	Log    LogConfig
	Engine EngineConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EngineConfig holds the posting/payment engine policy knobs
type EngineConfig struct {
	DefaultCurrency string // ISO 4217 code used when an owner has none
	UndatedLots     string // "first" or "last": where undated lots sort during payment allocation
	NumericFailure  string // "skip" or "fail": what to do with an entry whose value cannot be computed
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LEDGER_ prefix (e.g., LEDGER_LOG_LEVEL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Engine: EngineConfig{
			DefaultCurrency: v.GetString("engine.default_currency"),
			UndatedLots:     v.GetString("engine.undated_lots"),
			NumericFailure:  v.GetString("engine.numeric_failure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Engine.DefaultCurrency == "" {
		cfg.Engine.DefaultCurrency = "USD"
	}
	if cfg.Engine.UndatedLots == "" {
		cfg.Engine.UndatedLots = "first"
	}
	if cfg.Engine.NumericFailure == "" {
		cfg.Engine.NumericFailure = "skip"
	}
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (want debug, info, warn or error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q (want json or console)", c.Log.Format)
	}
	switch c.Engine.UndatedLots {
	case "first", "last":
	default:
		return fmt.Errorf("invalid engine.undated_lots %q (want first or last)", c.Engine.UndatedLots)
	}
	switch c.Engine.NumericFailure {
	case "skip", "fail":
	default:
		return fmt.Errorf("invalid engine.numeric_failure %q (want skip or fail)", c.Engine.NumericFailure)
	}
	if len(c.Engine.DefaultCurrency) != 3 {
		return fmt.Errorf("invalid engine.default_currency %q (want a 3-letter ISO 4217 code)", c.Engine.DefaultCurrency)
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
