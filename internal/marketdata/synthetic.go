package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"tradingcase/internal/domain"
	"tradingcase/internal/util"
)

var _ Provider = (*SyntheticProvider)(nil)

// SyntheticSeed seeds every generated series, so the same request always
// yields the same bars.
const SyntheticSeed = 42

var basePrices = map[string]float64{
	"AAPL":  150,
	"MSFT":  300,
	"GOOGL": 2500,
	"TSLA":  800,
	"AMZN":  3000,
	"NVDA":  400,
}

const (
	defaultBasePrice = 100.0
	minPrice         = 1.0
	meanReturn       = 0.001
	returnStdDev     = 0.02
	intradayRange    = 0.015
)

// SyntheticProvider generates a deterministic random walk of daily bars on
// weekdays. It backs demos and tests, and stands in when the real provider
// has nothing.
type SyntheticProvider struct {
	calendar *util.TradingCalendar
}

// NewSyntheticProvider creates a SyntheticProvider.
func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{calendar: util.NewTradingCalendar()}
}

// Name returns the provider identifier.
func (p *SyntheticProvider) Name() string { return "synthetic" }

// Fetch generates bars for every weekday in [start, end].
func (p *SyntheticProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days := p.calendar.TradingDays(start, end)
	if len(days) == 0 {
		return nil, fmt.Errorf("no business days between %s and %s: %w",
			start.Format(domain.DateLayout), end.Format(domain.DateLayout), domain.ErrDataUnavailable)
	}

	symbol = strings.ToUpper(symbol)
	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}

	rng := rand.New(rand.NewSource(SyntheticSeed))
	n := len(days)

	// Daily returns carry a linear drift from -10% to +15% spread over the
	// series.
	closes := make([]float64, n)
	closes[0] = base
	for i := 1; i < n; i++ {
		trend := -0.1
		if n > 1 {
			trend += 0.25 * float64(i) / float64(n-1)
		}
		ret := meanReturn + returnStdDev*rng.NormFloat64() + trend/float64(n)
		closes[i] = math.Max(closes[i-1]*(1+ret), minPrice)
	}

	bars := make([]domain.Bar, n)
	for i, day := range days {
		c := closes[i]
		high := c * (1 + rng.Float64()*intradayRange)
		low := c * (1 - rng.Float64()*intradayRange)
		open := c * (1 + (rng.Float64()-0.5)*intradayRange)
		volume := int64(1_000_000 + rng.Float64()*9_000_000)

		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: day,
			Open:      roundCents(open),
			High:      roundCents(math.Max(high, math.Max(c, open))),
			Low:       roundCents(math.Min(low, math.Min(c, open))),
			Close:     roundCents(c),
			Volume:    volume,
			VWAP:      roundCents((high + low + c) / 3),
		}
	}
	return bars, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
