package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradingcase service.
type Config struct {
	Storage    Storage        `yaml:"storage"`
	Server     Server         `yaml:"server"`
	Alpaca     Alpaca         `yaml:"alpaca"`
	Logging    Logging        `yaml:"logging"`
	MarketData MarketData     `yaml:"market_data"`
	Backtest   BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	// CacheBars enables the Parquet bar cache under DataDir.
	CacheBars bool `yaml:"cache_bars"`
}

// Server holds network listener configuration.
type Server struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	GRPCPort       int           `yaml:"grpc_port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives a copy of every log line.
	File string `yaml:"file"`
}

// MarketData selects and tunes the bar provider.
type MarketData struct {
	// Provider is "alpaca" or "synthetic".
	Provider string `yaml:"provider"`
	// FallbackSynthetic serves generated bars when the provider fails or
	// returns nothing.
	FallbackSynthetic bool          `yaml:"fallback_synthetic"`
	RateLimitPerMin   int           `yaml:"rate_limit_per_min"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
}

// BacktestConfig defines request defaults and limits for backtest runs.
type BacktestConfig struct {
	CommissionRate     float64 `yaml:"commission_rate"`
	DefaultInitialCash float64 `yaml:"default_initial_cash"`
	DefaultFastPeriod  int     `yaml:"default_fast_period"`
	DefaultSlowPeriod  int     `yaml:"default_slow_period"`
	// MaxPeriod caps either moving-average period; 0 disables the cap.
	MaxPeriod int `yaml:"max_period"`
	// MaxRangeDays caps end_date - start_date; 0 disables the cap.
	MaxRangeDays int `yaml:"max_range_days"`
}

// Provider names.
const (
	ProviderAlpaca    = "alpaca"
	ProviderSynthetic = "synthetic"
)

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/tradingcase.db",
			CacheBars:  true,
		},
		Server: Server{
			Host:           "0.0.0.0",
			Port:           8000,
			GRPCPort:       9090,
			RequestTimeout: 30 * time.Second,
		},
		Alpaca: Alpaca{
			BaseURL: "https://api.alpaca.markets",
			DataURL: "https://data.alpaca.markets",
			Feed:    "iex",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		MarketData: MarketData{
			Provider:          ProviderAlpaca,
			FallbackSynthetic: true,
			RateLimitPerMin:   200,
			MaxAttempts:       3,
			RetryDelay:        500 * time.Millisecond,
		},
		Backtest: BacktestConfig{
			CommissionRate:     0,
			DefaultInitialCash: 100000,
			DefaultFastPeriod:  10,
			DefaultSlowPeriod:  30,
			MaxPeriod:          500,
			MaxRangeDays:       366 * 30,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the
// defaults, then applies environment variable overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}
	switch c.MarketData.Provider {
	case ProviderAlpaca, ProviderSynthetic:
	default:
		return fmt.Errorf("market_data.provider must be %q or %q, got %q",
			ProviderAlpaca, ProviderSynthetic, c.MarketData.Provider)
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return fmt.Errorf("backtest.commission_rate must be in [0, 1), got %v", c.Backtest.CommissionRate)
	}
	if c.Backtest.DefaultInitialCash <= 0 {
		return fmt.Errorf("backtest.default_initial_cash must be positive, got %v", c.Backtest.DefaultInitialCash)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("TRADINGCASE_PROVIDER"); v != "" {
		cfg.MarketData.Provider = v
	}

	if v := os.Getenv("TRADINGCASE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADINGCASE_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("TRADINGCASE_COMMISSION_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRADINGCASE_COMMISSION_RATE: %w", err)
		}
		cfg.Backtest.CommissionRate = rate
	}

	// Standard Alpaca env vars take precedence.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}
