// Package marketdata supplies daily bar series to the backtest engine from
// Alpaca, a deterministic generator, or a Parquet-backed cache in front of
// either.
package marketdata

import (
	"context"
	"sort"
	"strings"
	"time"

	"tradingcase/internal/domain"
	"tradingcase/internal/util"
)

// Provider fetches daily bars for one symbol over [start, end]. The result is
// sorted by timestamp with one bar per calendar day. A provider that finds
// nothing returns an error wrapping domain.ErrDataUnavailable.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// normalize upper-cases symbols, truncates timestamps to UTC days, drops bars
// outside [start, end] and duplicate days, and sorts the rest.
func normalize(symbol string, bars []domain.Bar, start, end time.Time) []domain.Bar {
	start, end = util.TruncateDay(start), util.TruncateDay(end)
	sym := strings.ToUpper(symbol)

	seen := make(map[time.Time]int, len(bars))
	out := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		b.Symbol = sym
		b.Timestamp = util.TruncateDay(b.Timestamp)
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		if i, ok := seen[b.Timestamp]; ok {
			out[i] = b
			continue
		}
		seen[b.Timestamp] = len(out)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
