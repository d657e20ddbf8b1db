package strategy

import (
	"context"
	"fmt"

	"tradingcase/internal/broker"
	"tradingcase/internal/domain"
)

// SimConfig holds the account settings for a simulation.
type SimConfig struct {
	InitialCash float64
	// FeeRate is the proportional commission per fill; 0 disables fees.
	FeeRate float64
}

// Backtester replays historical bar data through a strategy and computes
// performance metrics.
type Backtester struct {
	registry *Registry
}

// NewBacktester creates a Backtester that looks up strategies in the
// provided registry.
func NewBacktester(registry *Registry) *Backtester {
	return &Backtester{
		registry: registry,
	}
}

// Run executes a backtest of the named strategy over bars. Parameters are
// validated before any signal or simulation work begins.
func (bt *Backtester) Run(
	ctx context.Context,
	name string,
	p Params,
	bars []domain.Bar,
	cfg SimConfig,
) (*domain.BacktestResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to simulate: %w", domain.ErrEmptyInput)
	}

	s, err := bt.registry.New(name, p)
	if err != nil {
		return nil, err
	}
	signals, err := GenerateSignals(ctx, s, bars)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Simulate(bars, signals, cfg)
}

func (c SimConfig) validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("initial cash must be positive, got %v: %w", c.InitialCash, domain.ErrInvalidParameters)
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return fmt.Errorf("fee rate must be in [0, 1), got %v: %w", c.FeeRate, domain.ErrInvalidParameters)
	}
	return nil
}

// Simulate walks bars and their parallel signals once, in order, executing
// market orders at each bar's close on a fresh ledger.
//
// A position still open after the last bar is not closed and not counted as
// a trade, but its value at the final close is included in FinalCash.
func Simulate(bars []domain.Bar, signals []domain.SignalType, cfg SimConfig) (*domain.BacktestResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to simulate: %w", domain.ErrEmptyInput)
	}
	if len(signals) != len(bars) {
		return nil, fmt.Errorf("got %d signals for %d bars: %w", len(signals), len(bars), domain.ErrInvalidParameters)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := checkBars(bars); err != nil {
		return nil, err
	}

	ledger := broker.NewLedger(cfg.InitialCash, cfg.FeeRate)
	for i, b := range bars {
		switch signals[i] {
		case domain.SignalBuy:
			ledger.Buy(b.Timestamp, b.Close)
		case domain.SignalSell:
			ledger.Sell(b.Timestamp, b.Close)
		}
		ledger.Mark(b.Close)
	}

	last := bars[len(bars)-1]
	res := &domain.BacktestResult{
		InitialCash: cfg.InitialCash,
		FinalCash:   ledger.Equity(),
		Bars:        len(bars),
		Trades:      ledger.Trades(),
	}
	res.ProfitLoss = res.FinalCash - res.InitialCash
	res.ProfitLossPercent = res.ProfitLoss / res.InitialCash * 100
	res.MaxDrawdown, res.MaxDrawdownPercent = ledger.MaxDrawdown()

	res.TotalTrades = len(res.Trades)
	for _, t := range res.Trades {
		switch {
		case t.IsWin():
			res.WinningTrades++
		case t.IsLoss():
			res.LosingTrades++
		}
	}

	if pos, ok := ledger.Position(); ok {
		res.OpenPosition = &pos
		res.UnrealizedPnL = pos.MarketValue(last.Close) - pos.CostBasis
	}
	return res, nil
}

// checkBars enforces strictly increasing timestamps and positive closes.
func checkBars(bars []domain.Bar) error {
	for i, b := range bars {
		if b.Close <= 0 {
			return fmt.Errorf("bar %s has non-positive close %v: %w", b.Date(), b.Close, domain.ErrInvalidParameters)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("bars out of order at %s: %w", b.Date(), domain.ErrInvalidParameters)
		}
	}
	return nil
}
