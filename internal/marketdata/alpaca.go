package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	amd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradingcase/internal/domain"
	"tradingcase/internal/util"
)

var _ Provider = (*AlpacaProvider)(nil)

// AlpacaOptions configures an AlpacaProvider.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	DataURL   string
	// Feed is "iex" (free plans) or "sip".
	Feed            string
	RateLimitPerMin int
	MaxAttempts     int
	RetryDelay      time.Duration
}

// AlpacaProvider fetches daily bars from the Alpaca market-data API.
type AlpacaProvider struct {
	client      *amd.Client
	feed        string
	limiter     *util.RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	loc         *time.Location
	log         *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider from opts.
func NewAlpacaProvider(opts AlpacaOptions) *AlpacaProvider {
	clientOpts := amd.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	// Daily bars are stamped at midnight New York time.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	return &AlpacaProvider{
		client:      amd.NewClient(clientOpts),
		feed:        opts.Feed,
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		loc:         loc,
		log:         slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// Fetch requests daily bars for symbol over [start, end], retrying transient
// failures.
func (p *AlpacaProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)

	// End is exclusive upstream; free feeds also refuse the last 15 minutes.
	reqEnd := util.TruncateDay(end).AddDate(0, 0, 1)
	if latest := time.Now().Add(-16 * time.Minute); reqEnd.After(latest) {
		reqEnd = latest
	}

	var raw []amd.Bar
	err := util.Retry(ctx, p.maxAttempts, p.retryDelay, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		bars, err := p.client.GetBars(symbol, amd.GetBarsRequest{
			TimeFrame: amd.OneDay,
			Start:     util.TruncateDay(start),
			End:       reqEnd,
			Feed:      amd.Feed(p.feed),
		})
		if err != nil {
			if isPermanent(err) {
				return util.Permanent(err)
			}
			p.log.Warn("GetBars failed, retrying", "symbol", symbol, "error", err)
			return err
		}
		raw = bars
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, p.toBar(symbol, ab))
	}
	bars = normalize(symbol, bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no alpaca bars for %s between %s and %s: %w",
			symbol, start.Format(domain.DateLayout), end.Format(domain.DateLayout), domain.ErrDataUnavailable)
	}
	p.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return bars, nil
}

// toBar converts an Alpaca bar, re-stamping it at UTC midnight of its New
// York trading day.
func (p *AlpacaProvider) toBar(symbol string, ab amd.Bar) domain.Bar {
	y, m, d := ab.Timestamp.In(p.loc).Date()
	return domain.Bar{
		Symbol:     symbol,
		Timestamp:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Open:       ab.Open,
		High:       ab.High,
		Low:        ab.Low,
		Close:      ab.Close,
		Volume:     int64(ab.Volume),
		TradeCount: int64(ab.TradeCount),
		VWAP:       ab.VWAP,
	}
}

// isPermanent reports whether an API error is a client error that retrying
// cannot fix. Rate limiting is not permanent.
func isPermanent(err error) bool {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}
