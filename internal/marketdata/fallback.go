package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradingcase/internal/domain"
)

var _ Provider = (*FallbackProvider)(nil)

// FallbackProvider serves bars from Primary and, when it fails or has no
// data, from Secondary. Context cancellation is never masked.
type FallbackProvider struct {
	Primary   Provider
	Secondary Provider
	log       *slog.Logger
}

// NewFallbackProvider chains primary and secondary.
func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{
		Primary:   primary,
		Secondary: secondary,
		log:       slog.Default().With("provider", "fallback"),
	}
}

// Name returns "<primary>+<secondary>".
func (p *FallbackProvider) Name() string {
	return p.Primary.Name() + "+" + p.Secondary.Name()
}

// Fetch tries Primary then Secondary.
func (p *FallbackProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	bars, err := p.Primary.Fetch(ctx, symbol, start, end)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	p.log.Warn("primary provider returned no data, using fallback",
		"symbol", symbol,
		"primary", p.Primary.Name(),
		"fallback", p.Secondary.Name(),
		"error", err,
	)
	bars, err2 := p.Secondary.Fetch(ctx, symbol, start, end)
	if err2 != nil {
		return nil, fmt.Errorf("%s: %w", p.Secondary.Name(), err2)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s: %w", symbol, domain.ErrDataUnavailable)
	}
	return bars, nil
}
