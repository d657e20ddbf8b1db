// Package indicator provides incremental technical indicators over price
// series.
package indicator

// RollingSMA is a simple moving average over the last Period values,
// maintained with a running sum so each Push is O(1).
type RollingSMA struct {
	period int
	window []float64 // ring buffer of the last period values
	next   int
	count  int
	sum    float64
}

// NewRollingSMA returns an empty accumulator. period must be positive.
func NewRollingSMA(period int) *RollingSMA {
	return &RollingSMA{
		period: period,
		window: make([]float64, period),
	}
}

// Period returns the window length.
func (s *RollingSMA) Period() int { return s.period }

// Push adds v to the window, evicting the oldest value once full.
func (s *RollingSMA) Push(v float64) {
	if s.count == s.period {
		s.sum -= s.window[s.next]
	} else {
		s.count++
	}
	s.window[s.next] = v
	s.sum += v
	s.next = (s.next + 1) % s.period
}

// Value returns the current average. ok is false until Period values have
// been pushed.
func (s *RollingSMA) Value() (avg float64, ok bool) {
	if s.count < s.period {
		return 0, false
	}
	return s.sum / float64(s.period), true
}

// Reset empties the window.
func (s *RollingSMA) Reset() {
	for i := range s.window {
		s.window[i] = 0
	}
	s.next, s.count, s.sum = 0, 0, 0
}
