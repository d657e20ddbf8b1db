package strategy_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingcase/internal/domain"
	"tradingcase/internal/strategy"
	"tradingcase/internal/strategy/builtins"
)

func barsFromCloses(closes []float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Symbol: "TEST", Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func randomWalk(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price *= 1 + rng.NormFloat64()*0.03
		if price < 1 {
			price = 1
		}
		closes[i] = price
	}
	return closes
}

func newBacktester() *strategy.Backtester {
	return strategy.NewBacktester(builtins.NewRegistry())
}

func TestBacktestScenarioOpenPositionAtEnd(t *testing.T) {
	bars := barsFromCloses([]float64{10, 10, 10, 10, 10, 12, 14, 16, 18, 20})
	res, err := newBacktester().Run(context.Background(), builtins.SMACrossName,
		strategy.Params{FastPeriod: 2, SlowPeriod: 5}, bars, strategy.SimConfig{InitialCash: 1000})
	require.NoError(t, err)

	// Bought at 12 with 1000, still open at 20.
	assert.Equal(t, 0, res.TotalTrades)
	require.NotNil(t, res.OpenPosition)
	assert.InDelta(t, 1000.0/12, res.OpenPosition.Qty, 1e-9)
	assert.InDelta(t, 1000.0/12*20, res.FinalCash, 1e-9)
	assert.InDelta(t, 1000.0/12*20-1000, res.ProfitLoss, 1e-9)
	assert.InDelta(t, res.ProfitLoss, res.UnrealizedPnL, 1e-9)
	assert.Zero(t, res.MaxDrawdown)
	assert.Zero(t, res.MaxDrawdownPercent)
	assert.Equal(t, 10, res.Bars)
}

func TestBacktestScenarioRoundTrip(t *testing.T) {
	bars := barsFromCloses([]float64{10, 10, 10, 10, 10, 12, 14, 16, 18, 20, 18, 14, 10, 8, 6})
	res, err := newBacktester().Run(context.Background(), builtins.SMACrossName,
		strategy.Params{FastPeriod: 2, SlowPeriod: 5}, bars, strategy.SimConfig{InitialCash: 1000})
	require.NoError(t, err)

	require.Equal(t, 1, res.TotalTrades)
	assert.Equal(t, 1, res.WinningTrades)
	assert.Equal(t, 0, res.LosingTrades)
	assert.Nil(t, res.OpenPosition)

	tr := res.Trades[0]
	assert.Equal(t, 12.0, tr.EntryPrice)
	assert.Equal(t, 14.0, tr.ExitPrice)
	assert.InDelta(t, 1000.0/12*2, tr.PnL, 1e-9)
	assert.InDelta(t, 1000.0/12*14, res.FinalCash, 1e-9)

	// Peak 1666.67 at close 20, trough 1166.67 after selling at 14.
	assert.InDelta(t, 500, res.MaxDrawdown, 1e-9)
	assert.InDelta(t, 30, res.MaxDrawdownPercent, 1e-9)
}

func TestBacktestRejectsBadPeriodsBeforeSimulating(t *testing.T) {
	// No bars at all: the period check must fire first.
	_, err := newBacktester().Run(context.Background(), builtins.SMACrossName,
		strategy.Params{FastPeriod: 30, SlowPeriod: 10}, nil, strategy.SimConfig{InitialCash: 1000})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestBacktestEmptyBars(t *testing.T) {
	_, err := newBacktester().Run(context.Background(), builtins.SMACrossName,
		strategy.Params{FastPeriod: 10, SlowPeriod: 30}, nil, strategy.SimConfig{InitialCash: 1000})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = strategy.Simulate(nil, nil, strategy.SimConfig{InitialCash: 1000})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestSimulateRejectsUnsortedBars(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3})
	bars[1], bars[2] = bars[2], bars[1]
	sigs := make([]domain.SignalType, len(bars))
	_, err := strategy.Simulate(bars, sigs, strategy.SimConfig{InitialCash: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestSimulateRejectsMismatchedSignals(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3})
	_, err := strategy.Simulate(bars, make([]domain.SignalType, 2), strategy.SimConfig{InitialCash: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestSimulateRejectsNonPositiveCash(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3})
	_, err := strategy.Simulate(bars, make([]domain.SignalType, 3), strategy.SimConfig{InitialCash: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestSimulateIgnoresRedundantSignals(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12, 13, 14})
	sigs := []domain.SignalType{
		domain.SignalSell, // nothing open
		domain.SignalBuy,
		domain.SignalBuy, // already open
		domain.SignalSell,
		domain.SignalSell, // nothing open
	}
	res, err := strategy.Simulate(bars, sigs, strategy.SimConfig{InitialCash: 110})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalTrades)
	assert.Equal(t, 11.0, res.Trades[0].EntryPrice)
	assert.Equal(t, 13.0, res.Trades[0].ExitPrice)
	assert.InDelta(t, 130, res.FinalCash, 1e-9)
}

func TestSimulateZeroPnLTradeIsNeitherWinNorLoss(t *testing.T) {
	bars := barsFromCloses([]float64{10, 10, 10})
	sigs := []domain.SignalType{domain.SignalBuy, domain.SignalSell, domain.SignalNone}
	res, err := strategy.Simulate(bars, sigs, strategy.SimConfig{InitialCash: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalTrades)
	assert.Equal(t, 0, res.WinningTrades)
	assert.Equal(t, 0, res.LosingTrades)
}

func TestBacktestProperties(t *testing.T) {
	bt := newBacktester()
	for seed := int64(1); seed <= 25; seed++ {
		bars := barsFromCloses(randomWalk(seed, 300))
		for _, fee := range []float64{0, 0.001} {
			cfg := strategy.SimConfig{InitialCash: 100000, FeeRate: fee}
			p := strategy.Params{FastPeriod: 5, SlowPeriod: 20}

			res, err := bt.Run(context.Background(), builtins.SMACrossName, p, bars, cfg)
			require.NoError(t, err, "seed %d", seed)

			zero := 0
			realized := 0.0
			for _, tr := range res.Trades {
				if tr.PnL == 0 {
					zero++
				}
				realized += tr.PnL
			}
			assert.Equal(t, res.TotalTrades, res.WinningTrades+res.LosingTrades+zero, "seed %d", seed)
			assert.InDelta(t, res.FinalCash-res.InitialCash, realized+res.UnrealizedPnL, 1e-6, "seed %d", seed)

			assert.GreaterOrEqual(t, res.MaxDrawdown, 0.0)
			assert.GreaterOrEqual(t, res.MaxDrawdownPercent, 0.0)
			assert.LessOrEqual(t, res.MaxDrawdownPercent, 100.0)
			assert.False(t, math.IsNaN(res.ProfitLossPercent))

			// Trades never overlap: each entry is after the previous exit.
			for i := 1; i < len(res.Trades); i++ {
				assert.True(t, res.Trades[i].EntryTime.After(res.Trades[i-1].ExitTime), "seed %d trade %d", seed, i)
			}
		}
	}
}

func TestBacktestIdempotent(t *testing.T) {
	bars := barsFromCloses(randomWalk(42, 250))
	bt := newBacktester()
	p := strategy.Params{FastPeriod: 10, SlowPeriod: 30}
	cfg := strategy.SimConfig{InitialCash: 100000}

	a, err := bt.Run(context.Background(), builtins.SMACrossName, p, bars, cfg)
	require.NoError(t, err)
	b, err := bt.Run(context.Background(), builtins.SMACrossName, p, bars, cfg)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(a, b), "results differ across identical runs")
}

func TestBacktestUnknownStrategy(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3})
	_, err := newBacktester().Run(context.Background(), "Nope",
		strategy.Params{FastPeriod: 1, SlowPeriod: 2}, bars, strategy.SimConfig{InitialCash: 10})
	assert.True(t, errors.Is(err, domain.ErrInvalidParameters))
}
