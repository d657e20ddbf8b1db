// Package engine runs backtest requests end to end: validation, bar fetch,
// simulation, report building, persistence and metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tradingcase/internal/domain"
	"tradingcase/internal/marketdata"
	"tradingcase/internal/metrics"
	"tradingcase/internal/store"
	"tradingcase/internal/strategy"
)

// Options wires an Engine. Runs and Metrics are optional.
type Options struct {
	Provider marketdata.Provider
	Registry *strategy.Registry
	Runs     store.RunStore
	Metrics  *metrics.Metrics
	Defaults Defaults
	Limits   Limits
	// FeeRate is the proportional commission charged on every fill.
	FeeRate float64
	Logger  *slog.Logger
}

// Engine is safe for concurrent use. Every run gets its own strategy
// instance and ledger.
type Engine struct {
	provider   marketdata.Provider
	registry   *strategy.Registry
	backtester *strategy.Backtester
	validator  *Validator
	runs       store.RunStore
	metrics    *metrics.Metrics
	feeRate    float64
	now        func() time.Time
	log        *slog.Logger
}

// New creates an Engine wired with the given dependencies.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		provider:   opts.Provider,
		registry:   opts.Registry,
		backtester: strategy.NewBacktester(opts.Registry),
		validator:  NewValidator(opts.Defaults, opts.Limits, opts.Registry),
		runs:       opts.Runs,
		metrics:    opts.Metrics,
		feeRate:    opts.FeeRate,
		now:        time.Now,
		log:        log.With("component", "engine"),
	}
}

// Run validates req, fetches bars, simulates the strategy and returns the
// rounded report. Errors match domain.ErrInvalidParameters,
// domain.ErrDataUnavailable or domain.ErrInternal.
func (e *Engine) Run(ctx context.Context, req Request) (*domain.Report, error) {
	started := e.now()
	strategyName := e.strategyLabel(req.Strategy)

	report, err := e.run(ctx, req)

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidParameters):
		outcome = metrics.OutcomeInvalid
	case errors.Is(err, domain.ErrDataUnavailable):
		outcome = metrics.OutcomeUnavailable
	case errors.Is(err, context.Canceled):
		outcome = metrics.OutcomeCanceled
	default:
		outcome = metrics.OutcomeError
	}
	elapsed := time.Since(started)
	if err != nil {
		e.metrics.ObserveRun(strategyName, outcome, elapsed, 0, 0)
		switch outcome {
		case metrics.OutcomeError:
			e.log.Error("backtest failed", "symbol", req.Symbol, "error", err)
		case metrics.OutcomeCanceled:
			e.log.Info("backtest canceled", "symbol", req.Symbol)
		default:
			e.log.Info("backtest rejected", "symbol", req.Symbol, "reason", err)
		}
		return nil, err
	}
	e.metrics.ObserveRun(strategyName, outcome, elapsed, report.Bars, report.TotalTrades)

	e.log.Info("backtest complete",
		"id", report.ID,
		"symbol", report.Symbol,
		"strategy", report.Strategy,
		"bars", report.Bars,
		"trades", report.TotalTrades,
		"pnl", report.ProfitLoss,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context, req Request) (report *domain.Report, err error) {
	p, err := e.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	bars, err := e.provider.Fetch(ctx, p.Symbol, p.Start, p.End)
	switch {
	case err == nil && len(bars) == 0:
		return nil, fmt.Errorf("no data available for symbol %s in the specified date range: %w",
			p.Symbol, domain.ErrDataUnavailable)
	case errors.Is(err, domain.ErrDataUnavailable):
		return nil, fmt.Errorf("no data available for symbol %s in the specified date range: %w",
			p.Symbol, domain.ErrDataUnavailable)
	case err != nil:
		return nil, fmt.Errorf("fetching bars for %s: %w: %w", p.Symbol, domain.ErrInternal, err)
	}

	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("simulation panicked: %v: %w", r, domain.ErrInternal)
		}
	}()

	res, err := e.backtester.Run(ctx, p.Strategy, p.Params, bars, strategy.SimConfig{
		InitialCash: p.InitialCash,
		FeeRate:     e.feeRate,
	})
	if err != nil {
		if domain.IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("simulating %s on %s: %w: %w", p.Strategy, p.Symbol, domain.ErrInternal, err)
	}

	report = buildReport(uuid.NewString(), e.now().UTC(), p, res)
	if e.runs != nil {
		if err := e.runs.SaveRun(ctx, report); err != nil {
			e.log.Warn("saving run failed", "id", report.ID, "error", err)
		}
	}
	return report, nil
}

// strategyLabel bounds the metrics label to registered strategy names.
func (e *Engine) strategyLabel(name string) string {
	if name == "" {
		name = e.validator.defaults.Strategy
	}
	if _, ok := e.registry.Get(name); !ok {
		return metrics.UnknownStrategy
	}
	return name
}

// Strategies returns the registered strategy descriptors sorted by name.
func (e *Engine) Strategies() []strategy.Descriptor {
	return e.registry.Descriptors()
}

// History returns the most recent runs, newest first. Without a run store it
// returns an empty list.
func (e *Engine) History(ctx context.Context, limit int) ([]domain.Report, error) {
	if e.runs == nil {
		return []domain.Report{}, nil
	}
	runs, err := e.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w: %w", domain.ErrInternal, err)
	}
	if runs == nil {
		runs = []domain.Report{}
	}
	return runs, nil
}

// Get returns one stored run with its trades.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Report, error) {
	if e.runs == nil {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	r, err := e.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading run %s: %w: %w", id, domain.ErrInternal, err)
	}
	return r, nil
}
