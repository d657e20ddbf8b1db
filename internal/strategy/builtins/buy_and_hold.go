package builtins

import (
	"context"

	"tradingcase/internal/domain"
	"tradingcase/internal/strategy"
)

var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHoldName is the registered name of the benchmark strategy.
const BuyAndHoldName = "BuyAndHold"

// BuyAndHold buys on the first bar and never sells. It is useful as a
// benchmark for the crossover strategy over the same range.
type BuyAndHold struct {
	bought bool
}

// NewBuyAndHold creates a BuyAndHold strategy.
func NewBuyAndHold() *BuyAndHold { return &BuyAndHold{} }

func (s *BuyAndHold) Name() string { return BuyAndHoldName }

func (s *BuyAndHold) Init(_ context.Context) error {
	s.bought = false
	return nil
}

func (s *BuyAndHold) OnBar(_ context.Context, _ domain.Bar) (domain.SignalType, error) {
	if s.bought {
		return domain.SignalNone, nil
	}
	s.bought = true
	return domain.SignalBuy, nil
}
