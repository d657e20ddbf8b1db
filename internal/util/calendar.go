package util

import "time"

// TradingCalendar answers which calendar days are sessions for daily bars.
// It treats Monday through Friday as trading days and does not model
// exchange holidays.
type TradingCalendar struct{}

// NewTradingCalendar creates a weekday TradingCalendar.
func NewTradingCalendar() *TradingCalendar {
	return &TradingCalendar{}
}

// IsTradingDay reports whether t falls on a weekday.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// TradingDays returns every trading day in [start, end] at UTC midnight.
func (tc *TradingCalendar) TradingDays(start, end time.Time) []time.Time {
	start = TruncateDay(start)
	end = TruncateDay(end)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if tc.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// TruncateDay returns t's calendar day at UTC midnight.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
