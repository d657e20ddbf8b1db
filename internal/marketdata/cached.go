package marketdata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tradingcase/internal/domain"
	"tradingcase/internal/store"
	"tradingcase/internal/util"
)

var _ Provider = (*CachedProvider)(nil)

// CachedProvider puts a BarStore in front of an upstream provider. A cached
// series that spans the requested range with no more gaps than holidays
// explain is served without touching the upstream; otherwise the upstream is queried and its bars written through.
// When the upstream fails, whatever the cache holds is served instead.
type CachedProvider struct {
	upstream Provider
	store    store.BarStore
	market   string
	calendar *util.TradingCalendar
	log      *slog.Logger
}

// NewCachedProvider wraps upstream with a write-through cache in s.
func NewCachedProvider(upstream Provider, s store.BarStore) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		store:    s,
		market:   store.DefaultMarket,
		calendar: util.NewTradingCalendar(),
		log:      slog.Default().With("provider", "cache"),
	}
}

// Name returns the upstream name with a cache marker.
func (p *CachedProvider) Name() string { return "cached(" + p.upstream.Name() + ")" }

// Fetch serves bars from the cache when it covers [start, end].
func (p *CachedProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	cached, err := p.store.ReadBars(ctx, symbol, p.market, util.TruncateDay(start), util.TruncateDay(end))
	if err != nil {
		p.log.Warn("cache read failed", "symbol", symbol, "error", err)
		cached = nil
	}
	if p.covers(cached, start, end) {
		p.log.Debug("cache hit", "symbol", symbol, "bars", len(cached))
		return cached, nil
	}

	bars, err := p.upstream.Fetch(ctx, symbol, start, end)
	if err != nil {
		if len(cached) > 0 && !errors.Is(err, context.Canceled) {
			p.log.Warn("upstream failed, serving cached bars",
				"symbol", symbol, "bars", len(cached), "error", err)
			return cached, nil
		}
		return nil, err
	}

	if err := p.store.WriteBars(ctx, bars); err != nil {
		p.log.Warn("cache write failed", "symbol", symbol, "error", err)
	}
	return bars, nil
}

// covers reports whether bars span [start, end] without a hole. The ends
// must reach the first and last trading day, and no more weekdays may be
// missing than exchange holidays account for.
func (p *CachedProvider) covers(bars []domain.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	days := p.calendar.TradingDays(start, end)
	if len(days) == 0 {
		return false
	}
	first, last := bars[0].Timestamp, bars[len(bars)-1].Timestamp
	if first.After(days[0]) || last.Before(days[len(days)-1]) {
		return false
	}
	return len(days)-len(bars) <= holidayAllowance(len(days))
}

// holidayAllowance is how many weekdays of a range may lack a bar. US
// exchanges close on about ten weekdays a year, one in 26.
func holidayAllowance(weekdays int) int {
	return weekdays/20 + 3
}
