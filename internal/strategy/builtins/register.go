package builtins

import "tradingcase/internal/strategy"

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register(strategy.Descriptor{
		Name:        SMACrossName,
		Description: "Buy when fast MA crosses above slow MA, sell when fast MA crosses below slow MA",
		Parameters: map[string]string{
			"fast_period": "Fast moving average period (default: 10)",
			"slow_period": "Slow moving average period (default: 30)",
		},
		New: func(p strategy.Params) (strategy.Strategy, error) {
			if err := p.Validate(); err != nil {
				return nil, err
			}
			return NewSMACross(p.FastPeriod, p.SlowPeriod), nil
		},
	})
	r.Register(strategy.Descriptor{
		Name:        BuyAndHoldName,
		Description: "Buy on the first bar and hold until the end of the range",
		Parameters:  map[string]string{},
		New: func(strategy.Params) (strategy.Strategy, error) {
			return NewBuyAndHold(), nil
		},
	})
}

// NewRegistry returns a registry pre-populated with the built-in strategies.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}
