// Package app wires configuration into a ready-to-run backtest engine and
// its supporting stores.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"tradingcase/internal/config"
	"tradingcase/internal/engine"
	"tradingcase/internal/marketdata"
	"tradingcase/internal/metrics"
	"tradingcase/internal/store"
	"tradingcase/internal/strategy/builtins"
)

// App holds the wired components. Close releases the stores.
type App struct {
	Engine   *engine.Engine
	Metrics  *metrics.Metrics
	Provider marketdata.Provider

	runs *store.SQLiteStore
}

// Options adjust wiring beyond what the config file says.
type Options struct {
	// NoHistory skips the SQLite run store.
	NoHistory bool
	// Provider overrides the configured provider.
	Provider marketdata.Provider
}

// New builds an App from cfg.
func New(cfg *config.Config, opts Options, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Metrics: metrics.New()}

	a.Provider = opts.Provider
	if a.Provider == nil {
		a.Provider = NewProvider(cfg, log)
	}

	var runs store.RunStore
	if !opts.NoHistory && cfg.Storage.SQLitePath != "" {
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening run store %s: %w", cfg.Storage.SQLitePath, err)
		}
		a.runs = s
		runs = s
	}

	a.Engine = engine.New(engine.Options{
		Provider: a.Provider,
		Registry: builtins.NewRegistry(),
		Runs:     runs,
		Metrics:  a.Metrics,
		Defaults: engine.Defaults{
			InitialCash: cfg.Backtest.DefaultInitialCash,
			FastPeriod:  cfg.Backtest.DefaultFastPeriod,
			SlowPeriod:  cfg.Backtest.DefaultSlowPeriod,
			Strategy:    builtins.SMACrossName,
		},
		Limits: engine.Limits{
			MaxPeriod:    cfg.Backtest.MaxPeriod,
			MaxRangeDays: cfg.Backtest.MaxRangeDays,
		},
		FeeRate: cfg.Backtest.CommissionRate,
		Logger:  log,
	})

	log.Info("engine ready",
		"provider", a.Provider.Name(),
		"history", runs != nil,
		"commissionRate", cfg.Backtest.CommissionRate,
	)
	return a, nil
}

// NewProvider builds the bar provider chain described by cfg:
// Alpaca (optionally cached in Parquet) falling back to synthetic bars, or
// synthetic bars alone.
func NewProvider(cfg *config.Config, log *slog.Logger) marketdata.Provider {
	if log == nil {
		log = slog.Default()
	}
	synthetic := marketdata.NewSyntheticProvider()
	if cfg.MarketData.Provider == config.ProviderSynthetic {
		return synthetic
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Warn("alpaca credentials missing, using synthetic bars")
		return synthetic
	}

	var p marketdata.Provider = marketdata.NewAlpacaProvider(marketdata.AlpacaOptions{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		Feed:            cfg.Alpaca.Feed,
		RateLimitPerMin: cfg.MarketData.RateLimitPerMin,
		MaxAttempts:     cfg.MarketData.MaxAttempts,
		RetryDelay:      cfg.MarketData.RetryDelay,
	})
	if cfg.Storage.CacheBars && cfg.Storage.DataDir != "" {
		p = marketdata.NewCachedProvider(p, store.NewParquetStore(cfg.Storage.DataDir))
	}
	if cfg.MarketData.FallbackSynthetic {
		p = marketdata.NewFallbackProvider(p, synthetic)
	}
	return p
}

// Close releases the run store.
func (a *App) Close() error {
	var errs []error
	if a.runs != nil {
		errs = append(errs, a.runs.Close())
	}
	return errors.Join(errs...)
}
