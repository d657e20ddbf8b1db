// Package broker provides the simulated single-asset account used by
// backtests: a cash/position ledger that fills market orders at a given price
// and tracks equity, peak equity and drawdown.
package broker

import (
	"time"

	"tradingcase/internal/domain"
)

// Ledger is the long-only, single-lot account for one backtest run. It is not
// safe for concurrent use; every run allocates its own.
type Ledger struct {
	cash    float64
	feeRate float64

	position *domain.Position
	entryFee float64
	trades   []domain.Trade

	equity             float64
	peak               float64
	maxDrawdown        float64
	maxDrawdownPercent float64
}

// NewLedger creates a Ledger holding initialCash. feeRate is the proportional
// commission charged on the notional of each fill (0.001 = 0.1%).
func NewLedger(initialCash, feeRate float64) *Ledger {
	return &Ledger{
		cash:    initialCash,
		feeRate: feeRate,
		equity:  initialCash,
		peak:    initialCash,
	}
}

// Buy opens a position with all available cash at price. It is a no-op
// returning false when a position is already open or there is no cash.
func (l *Ledger) Buy(ts time.Time, price float64) bool {
	if l.position != nil || l.cash <= 0 || price <= 0 {
		return false
	}
	qty := l.cash / (price * (1 + l.feeRate))
	l.entryFee = qty * price * l.feeRate
	l.position = &domain.Position{
		EntryTime:  ts,
		EntryPrice: price,
		Qty:        qty,
		CostBasis:  l.cash,
	}
	// Fractional sizing leaves no unallocated remainder.
	l.cash = 0
	return true
}

// Sell closes the open position at price and records the round trip. It is a
// no-op returning false when no position is open.
func (l *Ledger) Sell(ts time.Time, price float64) bool {
	if l.position == nil {
		return false
	}
	p := l.position
	proceeds := p.Qty * price
	exitFee := proceeds * l.feeRate
	fees := l.entryFee + exitFee

	l.cash += proceeds - exitFee
	l.trades = append(l.trades, domain.Trade{
		EntryTime:  p.EntryTime,
		EntryPrice: p.EntryPrice,
		ExitTime:   ts,
		ExitPrice:  price,
		Qty:        p.Qty,
		PnL:        p.Qty*(price-p.EntryPrice) - fees,
		Fees:       fees,
	})
	l.position = nil
	l.entryFee = 0
	return true
}

// Mark revalues the account at price and updates peak equity and drawdown.
// It returns the new equity.
func (l *Ledger) Mark(price float64) float64 {
	equity := l.cash
	if l.position != nil {
		equity += l.position.MarketValue(price)
	}
	l.equity = equity

	if equity > l.peak {
		l.peak = equity
	}
	dd := l.peak - equity
	if dd > l.maxDrawdown {
		l.maxDrawdown = dd
	}
	// Track the worst ratio seen at any bar, not the ratio of the final
	// absolute maximum to the final peak.
	if l.peak > 0 {
		if pct := dd / l.peak * 100; pct > l.maxDrawdownPercent {
			l.maxDrawdownPercent = pct
		}
	}
	return equity
}

// Cash returns free cash.
func (l *Ledger) Cash() float64 { return l.cash }

// Equity returns the equity as of the last Mark.
func (l *Ledger) Equity() float64 { return l.equity }

// Peak returns the highest equity seen.
func (l *Ledger) Peak() float64 { return l.peak }

// MaxDrawdown returns the largest absolute decline from peak and the largest
// decline ratio in percent.
func (l *Ledger) MaxDrawdown() (abs, pct float64) {
	return l.maxDrawdown, l.maxDrawdownPercent
}

// Position returns a copy of the open lot.
func (l *Ledger) Position() (domain.Position, bool) {
	if l.position == nil {
		return domain.Position{}, false
	}
	return *l.position, true
}

// Trades returns the closed round trips in the order they closed.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
