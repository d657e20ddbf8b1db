package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 {
		t.Error("expected zero OHLC values for zero-value Bar")
	}
	if bar.Volume != 0 || bar.TradeCount != 0 || bar.VWAP != 0 {
		t.Error("expected zero Volume/TradeCount/VWAP for zero-value Bar")
	}

	// Verify enum constants are defined correctly.
	if SignalBuy != "buy" || SignalSell != "sell" || SignalNone != "none" {
		t.Error("SignalType constants have unexpected values")
	}

	// Verify structs can be constructed with real values.
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pos := Position{EntryTime: now, EntryPrice: 10, Qty: 5, CostBasis: 50}
	if got := pos.MarketValue(12); got != 60 {
		t.Errorf("pos.MarketValue(12) = %v, want 60", got)
	}
}

func TestBarDate(t *testing.T) {
	b := Bar{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	if got := b.Date(); got != "2024-01-02" {
		t.Errorf("Date() = %q, want %q", got, "2024-01-02")
	}
}

func TestTradeClassification(t *testing.T) {
	win := Trade{PnL: 1.5}
	loss := Trade{PnL: -0.01}
	flat := Trade{PnL: 0}

	if !win.IsWin() || win.IsLoss() {
		t.Error("positive P&L should be a win only")
	}
	if loss.IsWin() || !loss.IsLoss() {
		t.Error("negative P&L should be a loss only")
	}
	if flat.IsWin() || flat.IsLoss() {
		t.Error("zero P&L should be neither a win nor a loss")
	}
}

func TestIsClientError(t *testing.T) {
	wrapped := fmt.Errorf("fast_period must be less than slow_period: %w", ErrInvalidParameters)
	if !IsClientError(wrapped) {
		t.Error("wrapped ErrInvalidParameters should be a client error")
	}
	if !IsClientError(fmt.Errorf("AAPL: %w", ErrDataUnavailable)) {
		t.Error("ErrDataUnavailable should be a client error")
	}
	if IsClientError(fmt.Errorf("boom: %w", ErrInternal)) {
		t.Error("ErrInternal should not be a client error")
	}
	if IsClientError(errors.New("anything else")) {
		t.Error("unclassified error should not be a client error")
	}
}
