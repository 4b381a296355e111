package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CRYPTOMKT"

// Config represents the application configuration
type Config struct {
	CryptoMKT CryptoMKTConfig `mapstructure:"cryptomkt"`
	Log       LogConfig       `mapstructure:"log"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Payment   PaymentConfig   `mapstructure:"payment"`
}

// CryptoMKTConfig contains CryptoMKT API configuration
type CryptoMKTConfig struct {
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DefaultLimit   int    `mapstructure:"default_limit"`
}

// Timeout returns the HTTP timeout as a duration.
func (c CryptoMKTConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HasCredentials reports whether both the API key and secret are set.
func (c CryptoMKTConfig) HasCredentials() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Output     string `mapstructure:"output"` // console, file, both
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// TradingConfig contains trading configuration
type TradingConfig struct {
	DefaultMarket string `mapstructure:"default_market"`
}

// PaymentConfig contains payment order watch configuration
type PaymentConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	WatchTimeoutMinutes int `mapstructure:"watch_timeout_minutes"`
	MaxErrors           int `mapstructure:"max_errors"`
}

// PollInterval returns the status polling interval.
func (c PaymentConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// WatchTimeout returns the maximum time a payment order is watched.
func (c PaymentConfig) WatchTimeout() time.Duration {
	return time.Duration(c.WatchTimeoutMinutes) * time.Minute
}

// Load loads configuration from file and environment variables
// If configPath is empty, it will search in default locations (./configs, .)
func Load(configPath ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// CRYPTOMKT_LOG_LEVEL overrides log.level and so on
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("error binding environment variables: %w", err)
	}

	if len(configPath) > 0 && configPath[0] != "" {
		v.SetConfigFile(configPath[0])
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// The config file is optional unless a path was given explicitly
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cryptomkt.api_key", "")
	v.SetDefault("cryptomkt.api_secret", "")
	v.SetDefault("cryptomkt.api_base_url", "https://api.cryptomkt.com")
	v.SetDefault("cryptomkt.timeout_seconds", 30)
	v.SetDefault("cryptomkt.default_limit", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file", "logs/cryptomkt.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("trading.default_market", "ETHCLP")
	v.SetDefault("payment.poll_interval_seconds", 10)
	v.SetDefault("payment.watch_timeout_minutes", 16)
	v.SetDefault("payment.max_errors", 5)
}

// bindEnvVars adds the short names used in .env files next to the
// prefixed ones derived by AutomaticEnv.
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"cryptomkt.api_key":      {"CRYPTOMKT_API_KEY"},
		"cryptomkt.api_secret":   {"CRYPTOMKT_API_SECRET"},
		"log.level":              {"CRYPTOMKT_LOG_LEVEL", "LOG_LEVEL"},
		"log.output":             {"CRYPTOMKT_LOG_OUTPUT", "LOG_OUTPUT"},
		"trading.default_market": {"CRYPTOMKT_TRADING_DEFAULT_MARKET", "DEFAULT_MARKET"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func validate(cfg *Config) error {
	// Placeholders copied from the sample config count as unset
	if strings.HasPrefix(cfg.CryptoMKT.APIKey, "your_") {
		cfg.CryptoMKT.APIKey = ""
	}
	if strings.HasPrefix(cfg.CryptoMKT.APISecret, "your_") {
		cfg.CryptoMKT.APISecret = ""
	}

	if cfg.CryptoMKT.APIBaseURL == "" {
		return fmt.Errorf("cryptomkt.api_base_url is required")
	}
	if cfg.CryptoMKT.TimeoutSeconds <= 0 {
		return fmt.Errorf("cryptomkt.timeout_seconds must be greater than 0")
	}
	if cfg.CryptoMKT.DefaultLimit <= 0 {
		return fmt.Errorf("cryptomkt.default_limit must be greater than 0")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q: must be debug, info, warn or error", cfg.Log.Level)
	}
	switch cfg.Log.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log.output %q: must be console, file or both", cfg.Log.Output)
	}

	if cfg.Payment.PollIntervalSeconds <= 0 {
		return fmt.Errorf("payment.poll_interval_seconds must be greater than 0")
	}
	if cfg.Payment.WatchTimeoutMinutes <= 0 {
		return fmt.Errorf("payment.watch_timeout_minutes must be greater than 0")
	}
	if cfg.Payment.MaxErrors <= 0 {
		return fmt.Errorf("payment.max_errors must be greater than 0")
	}

	return nil
}
