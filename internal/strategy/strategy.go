// Package strategy defines the Strategy interface for trading strategies,
// a Registry of strategy descriptors, and the Backtester that replays bars
// through a strategy and a simulated ledger.
package strategy

import (
	"context"
	"fmt"
	"sort"

	"tradingcase/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
// Implementations keep per-run state and are not safe for concurrent use;
// obtain a fresh instance per run from the Registry.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init resets any state before the strategy begins processing bars.
	Init(ctx context.Context) error

	// OnBar is called for each bar in chronological order and returns the
	// signal for that bar.
	OnBar(ctx context.Context, bar domain.Bar) (domain.SignalType, error)
}

// Params carries the tunable inputs shared by the built-in strategies.
type Params struct {
	FastPeriod int
	SlowPeriod int
}

// Validate checks the moving-average period constraints.
func (p Params) Validate() error {
	if p.FastPeriod <= 0 {
		return fmt.Errorf("fast_period must be positive, got %d: %w", p.FastPeriod, domain.ErrInvalidParameters)
	}
	if p.SlowPeriod <= 0 {
		return fmt.Errorf("slow_period must be positive, got %d: %w", p.SlowPeriod, domain.ErrInvalidParameters)
	}
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("fast period must be less than slow period (%d >= %d): %w",
			p.FastPeriod, p.SlowPeriod, domain.ErrInvalidParameters)
	}
	return nil
}

// Factory builds a new Strategy instance for one run.
type Factory func(p Params) (Strategy, error)

// Descriptor describes a registered strategy.
type Descriptor struct {
	Name        string
	Description string
	// Parameters maps parameter names to human-readable help.
	Parameters map[string]string
	New        Factory
}

// Registry holds a named collection of strategy descriptors. It is populated
// at startup and read-only afterwards.
type Registry struct {
	strategies map[string]Descriptor
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Descriptor),
	}
}

// Register adds a descriptor to the registry, keyed by its Name.
func (r *Registry) Register(d Descriptor) {
	r.strategies[d.Name] = d
}

// Get retrieves a descriptor by name. The second return value indicates
// whether the strategy was found.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.strategies[name]
	return d, ok
}

// New builds a fresh instance of the named strategy.
func (r *Registry) New(name string, p Params) (Strategy, error) {
	d, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q: %w", name, domain.ErrInvalidParameters)
	}
	return d.New(p)
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns all descriptors sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	names := r.List()
	out := make([]Descriptor, 0, len(names))
	for _, n := range names {
		out = append(out, r.strategies[n])
	}
	return out
}

// GenerateSignals runs s over bars in a single forward pass and returns one
// signal per bar.
func GenerateSignals(ctx context.Context, s Strategy, bars []domain.Bar) ([]domain.SignalType, error) {
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s: %w", s.Name(), err)
	}
	signals := make([]domain.SignalType, len(bars))
	for i, b := range bars {
		sig, err := s.OnBar(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("%s on bar %s: %w", s.Name(), b.Date(), err)
		}
		signals[i] = sig
	}
	return signals, nil
}
