// Package domain defines the core value types shared across tradingcase:
// price bars, strategy signals, positions, closed trades and backtest results.
package domain

import "time"

// DateLayout is the calendar-day format used on every external surface.
const DateLayout = "2006-01-02"

// Bar is one trading day of OHLCV data for a symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Date returns the bar's calendar day as YYYY-MM-DD in UTC.
func (b Bar) Date() string {
	return b.Timestamp.UTC().Format(DateLayout)
}

// SignalType is the per-bar output of a strategy.
type SignalType string

const (
	SignalNone SignalType = "none"
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// Position is the single open long lot held during a run.
type Position struct {
	EntryTime  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	Qty        float64   `json:"quantity"`
	// CostBasis is the cash spent opening the lot, fees included.
	CostBasis float64 `json:"cost_basis"`
}

// MarketValue returns the lot's value at price.
func (p Position) MarketValue(price float64) float64 {
	return p.Qty * price
}

// Trade is a closed round trip. Trades are immutable once recorded.
type Trade struct {
	EntryTime  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	Qty        float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	Fees       float64   `json:"fees"`
}

// IsWin reports whether the trade realized a strictly positive P&L.
func (t Trade) IsWin() bool { return t.PnL > 0 }

// IsLoss reports whether the trade realized a strictly negative P&L.
func (t Trade) IsLoss() bool { return t.PnL < 0 }

// BacktestResult is the complete, unrounded output of a single simulation.
type BacktestResult struct {
	InitialCash float64
	// FinalCash is the final equity: free cash plus the open lot marked at
	// the last close.
	FinalCash          float64
	ProfitLoss         float64
	ProfitLossPercent  float64
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	MaxDrawdown        float64
	MaxDrawdownPercent float64
	UnrealizedPnL      float64
	Bars               int
	Trades             []Trade
	OpenPosition       *Position
}
