package broker

import (
	"math"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLedgerBuySellRoundTrip(t *testing.T) {
	l := NewLedger(1000, 0)

	if !l.Buy(day(2), 10) {
		t.Fatal("Buy should open a position")
	}
	pos, ok := l.Position()
	if !ok {
		t.Fatal("Position() should report an open lot")
	}
	if !almostEqual(pos.Qty, 100) {
		t.Errorf("Qty = %v, want 100", pos.Qty)
	}
	if l.Cash() != 0 {
		t.Errorf("Cash = %v, want 0 after all-in buy", l.Cash())
	}

	if !l.Sell(day(3), 12) {
		t.Fatal("Sell should close the position")
	}
	if _, ok := l.Position(); ok {
		t.Error("position should be closed")
	}
	if !almostEqual(l.Cash(), 1200) {
		t.Errorf("Cash = %v, want 1200", l.Cash())
	}

	trades := l.Trades()
	if len(trades) != 1 {
		t.Fatalf("len(Trades) = %d, want 1", len(trades))
	}
	if !almostEqual(trades[0].PnL, 200) {
		t.Errorf("PnL = %v, want 200", trades[0].PnL)
	}
	if !trades[0].IsWin() {
		t.Error("trade should be a win")
	}
}

func TestLedgerIgnoresSecondBuy(t *testing.T) {
	l := NewLedger(1000, 0)
	l.Buy(day(2), 10)
	if l.Buy(day(3), 5) {
		t.Error("second Buy while a position is open should be a no-op")
	}
	pos, _ := l.Position()
	if pos.EntryPrice != 10 {
		t.Errorf("EntryPrice = %v, want 10", pos.EntryPrice)
	}
}

func TestLedgerIgnoresSellWithoutPosition(t *testing.T) {
	l := NewLedger(1000, 0)
	if l.Sell(day(2), 10) {
		t.Error("Sell with no open position should be a no-op")
	}
	if l.Cash() != 1000 {
		t.Errorf("Cash = %v, want 1000", l.Cash())
	}
	if len(l.Trades()) != 0 {
		t.Error("no trade should be recorded")
	}
}

func TestLedgerFeesReduceProceeds(t *testing.T) {
	l := NewLedger(1001, 0.001)
	l.Buy(day(2), 10)
	pos, _ := l.Position()
	// 1001 / (10 * 1.001) = 100 shares.
	if !almostEqual(pos.Qty, 100) {
		t.Fatalf("Qty = %v, want 100", pos.Qty)
	}

	l.Sell(day(3), 10)
	tr := l.Trades()[0]
	// Entry fee 1.0, exit fee 1.0.
	if !almostEqual(tr.Fees, 2) {
		t.Errorf("Fees = %v, want 2", tr.Fees)
	}
	if !almostEqual(tr.PnL, -2) {
		t.Errorf("PnL = %v, want -2", tr.PnL)
	}
	if !almostEqual(l.Cash()-1001, tr.PnL) {
		t.Errorf("cash delta %v != trade PnL %v", l.Cash()-1001, tr.PnL)
	}
}

func TestLedgerDrawdownTracksRunningMaxRatio(t *testing.T) {
	l := NewLedger(100, 0)
	l.Buy(day(1), 1)

	// Equity path: 100 -> 50 (50%) -> 400 -> 300 (25%, abs 100).
	l.Mark(1)
	l.Mark(0.5)
	l.Mark(4)
	l.Mark(3)

	abs, pct := l.MaxDrawdown()
	if !almostEqual(abs, 100) {
		t.Errorf("max drawdown = %v, want 100", abs)
	}
	if !almostEqual(pct, 50) {
		t.Errorf("max drawdown percent = %v, want 50", pct)
	}
	if !almostEqual(l.Peak(), 400) {
		t.Errorf("Peak = %v, want 400", l.Peak())
	}
}

func TestLedgerNoDrawdownWhenEquityOnlyRises(t *testing.T) {
	l := NewLedger(100, 0)
	l.Buy(day(1), 1)
	for _, p := range []float64{1, 1.1, 1.2, 1.3} {
		l.Mark(p)
	}
	abs, pct := l.MaxDrawdown()
	if abs != 0 || pct != 0 {
		t.Errorf("MaxDrawdown = (%v, %v), want (0, 0)", abs, pct)
	}
}
