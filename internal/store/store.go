// Package store defines storage interfaces for persisting and retrieving
// daily bars and backtest run history, with Parquet and SQLite backends.
package store

import (
	"context"
	"time"

	"tradingcase/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// RunStore persists completed backtest reports.
type RunStore interface {
	// SaveRun inserts a report and its trades.
	SaveRun(ctx context.Context, r *domain.Report) error

	// GetRun retrieves a report, trades included, by ID. It returns an error
	// wrapping domain.ErrNotFound when no such run exists.
	GetRun(ctx context.Context, id string) (*domain.Report, error)

	// ListRuns returns the most recent reports, newest first, up to limit.
	// Trades are omitted.
	ListRuns(ctx context.Context, limit int) ([]domain.Report, error)
}
