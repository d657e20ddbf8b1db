// Package builtins provides built-in strategy implementations that ship with
// tradingcase.
package builtins

import (
	"context"

	"tradingcase/internal/domain"
	"tradingcase/internal/indicator"
	"tradingcase/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACrossName is the registered name of the crossover strategy.
const SMACrossName = "MovingAverageCrossover"

// SMACross implements a simple moving average crossover strategy. It generates
// a buy signal when the fast SMA crosses above the slow SMA, and a sell signal
// when it crosses below.
//
// A cross is a change in the sign of (fast - slow) between consecutive bars.
// Equality counts as both non-positive and non-negative, so averages that
// touch without crossing emit nothing.
type SMACross struct {
	fastPeriod int
	slowPeriod int

	fast *indicator.RollingSMA
	slow *indicator.RollingSMA

	prevDiff float64
	havePrev bool
}

// NewSMACross creates a new SMACross strategy with the specified fast and
// slow moving average periods. Periods must already be validated.
func NewSMACross(fast, slow int) *SMACross {
	return &SMACross{
		fastPeriod: fast,
		slowPeriod: slow,
		fast:       indicator.NewRollingSMA(fast),
		slow:       indicator.NewRollingSMA(slow),
	}
}

// Name returns "MovingAverageCrossover".
func (s *SMACross) Name() string {
	return SMACrossName
}

// Init clears the moving-average windows.
func (s *SMACross) Init(_ context.Context) error {
	s.fast.Reset()
	s.slow.Reset()
	s.prevDiff = 0
	s.havePrev = false
	return nil
}

// OnBar pushes the bar's close into both averages and reports a crossover.
func (s *SMACross) OnBar(_ context.Context, bar domain.Bar) (domain.SignalType, error) {
	s.fast.Push(bar.Close)
	s.slow.Push(bar.Close)

	f, okFast := s.fast.Value()
	sl, okSlow := s.slow.Value()
	if !okFast || !okSlow {
		return domain.SignalNone, nil
	}

	diff := f - sl
	if !s.havePrev {
		s.prevDiff, s.havePrev = diff, true
		return domain.SignalNone, nil
	}
	prev := s.prevDiff
	s.prevDiff = diff

	switch {
	case prev <= 0 && diff > 0:
		return domain.SignalBuy, nil
	case prev >= 0 && diff < 0:
		return domain.SignalSell, nil
	}
	return domain.SignalNone, nil
}
