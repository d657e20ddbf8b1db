package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"tradingcase/internal/domain"
)

// round returns v rounded half away from zero to places decimals.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func money(v float64) float64 { return round(v, 2) }

func cents(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }

// buildReport converts a full-precision result into the presented report.
// Money and percentages are rounded to cents; quantities keep six places.
// ProfitLoss is the difference of the rounded cash figures so the presented
// fields agree to the cent.
func buildReport(id string, createdAt time.Time, p Params, res *domain.BacktestResult) *domain.Report {
	initial, final := cents(res.InitialCash), cents(res.FinalCash)
	r := &domain.Report{
		ID:          id,
		CreatedAt:   createdAt,
		Symbol:      p.Symbol,
		StartDate:   p.Start.Format(domain.DateLayout),
		EndDate:     p.End.Format(domain.DateLayout),
		Strategy:    p.Strategy,
		FastPeriod:  p.FastPeriod,
		SlowPeriod:  p.SlowPeriod,
		InitialCash: initial.InexactFloat64(),

		FinalCash:          final.InexactFloat64(),
		ProfitLoss:         final.Sub(initial).InexactFloat64(),
		ProfitLossPercent:  money(res.ProfitLossPercent),
		TotalTrades:        res.TotalTrades,
		WinningTrades:      res.WinningTrades,
		LosingTrades:       res.LosingTrades,
		MaxDrawdown:        money(res.MaxDrawdown),
		MaxDrawdownPercent: money(res.MaxDrawdownPercent),

		Bars:          res.Bars,
		UnrealizedPnL: money(res.UnrealizedPnL),
	}

	if len(res.Trades) > 0 {
		r.Trades = make([]domain.Trade, len(res.Trades))
		for i, t := range res.Trades {
			r.Trades[i] = domain.Trade{
				EntryTime:  t.EntryTime,
				EntryPrice: money(t.EntryPrice),
				ExitTime:   t.ExitTime,
				ExitPrice:  money(t.ExitPrice),
				Qty:        round(t.Qty, 6),
				PnL:        money(t.PnL),
				Fees:       money(t.Fees),
			}
		}
	}
	if pos := res.OpenPosition; pos != nil {
		r.OpenPosition = &domain.Position{
			EntryTime:  pos.EntryTime,
			EntryPrice: money(pos.EntryPrice),
			Qty:        round(pos.Qty, 6),
			CostBasis:  money(pos.CostBasis),
		}
	}
	return r
}
