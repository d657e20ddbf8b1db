package domain

import "time"

// Report is the externally visible record of one backtest run: the echoed
// request, the rounded result, and the run's identity. It is what the HTTP
// and gRPC surfaces return and what the run history stores.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Symbol      string  `json:"symbol"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Strategy    string  `json:"strategy"`
	FastPeriod  int     `json:"fast_period"`
	SlowPeriod  int     `json:"slow_period"`
	InitialCash float64 `json:"initial_cash"`

	FinalCash          float64 `json:"final_cash"`
	ProfitLoss         float64 `json:"profit_loss"`
	ProfitLossPercent  float64 `json:"profit_loss_percent"`
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`

	Bars          int       `json:"bars"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	OpenPosition  *Position `json:"open_position,omitempty"`
	Trades        []Trade   `json:"trades,omitempty"`
}
