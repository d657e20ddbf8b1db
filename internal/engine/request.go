package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tradingcase/internal/domain"
	"tradingcase/internal/strategy"
)

// Request is a backtest request as received on the wire. Optional numeric
// fields are pointers so an omitted value takes the configured default while
// an explicit zero is rejected.
type Request struct {
	Symbol      string   `json:"symbol" validate:"required,symbol"`
	StartDate   string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	InitialCash *float64 `json:"initial_cash,omitempty" validate:"omitempty,gt=0"`
	FastPeriod  *int     `json:"fast_period,omitempty" validate:"omitempty,gt=0"`
	SlowPeriod  *int     `json:"slow_period,omitempty" validate:"omitempty,gt=0"`
	Strategy    string   `json:"strategy,omitempty"`
}

// Params is a validated Request with defaults applied.
type Params struct {
	Symbol      string
	Start       time.Time
	End         time.Time
	InitialCash float64
	Strategy    string
	strategy.Params
}

// Defaults fill omitted request fields.
type Defaults struct {
	InitialCash float64
	FastPeriod  int
	SlowPeriod  int
	Strategy    string
}

// Limits bound what a single request may ask for. Zero disables a limit.
type Limits struct {
	MaxPeriod    int
	MaxRangeDays int
}

// ValidationError names the request constraint that was violated. It
// matches domain.ErrInvalidParameters with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return domain.ErrInvalidParameters }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]{0,15}$`)

// requestValidate is safe for concurrent use.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

// Validator checks requests against field rules, cross-field rules, the
// strategy registry and the configured limits.
type Validator struct {
	defaults Defaults
	limits   Limits
	registry *strategy.Registry
}

// NewValidator creates a Validator.
func NewValidator(defaults Defaults, limits Limits, registry *strategy.Registry) *Validator {
	return &Validator{defaults: defaults, limits: limits, registry: registry}
}

// Validate returns the resolved Params or a *ValidationError describing the
// first violated constraint.
func (v *Validator) Validate(req Request) (Params, error) {
	if err := requestValidate.Struct(req); err != nil {
		return Params{}, translate(err)
	}

	start, _ := time.Parse(domain.DateLayout, req.StartDate)
	end, _ := time.Parse(domain.DateLayout, req.EndDate)
	if !start.Before(end) {
		return Params{}, invalid("start_date", "Start date must be before end date")
	}
	if v.limits.MaxRangeDays > 0 && end.Sub(start) > time.Duration(v.limits.MaxRangeDays)*24*time.Hour {
		return Params{}, invalid("end_date", "Date range must not exceed %d days", v.limits.MaxRangeDays)
	}

	p := Params{
		Symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Start:       start,
		End:         end,
		InitialCash: v.defaults.InitialCash,
		Strategy:    v.defaults.Strategy,
		Params: strategy.Params{
			FastPeriod: v.defaults.FastPeriod,
			SlowPeriod: v.defaults.SlowPeriod,
		},
	}
	if req.InitialCash != nil {
		p.InitialCash = *req.InitialCash
	}
	if req.FastPeriod != nil {
		p.FastPeriod = *req.FastPeriod
	}
	if req.SlowPeriod != nil {
		p.SlowPeriod = *req.SlowPeriod
	}
	if req.Strategy != "" {
		p.Strategy = req.Strategy
	}

	if p.InitialCash <= 0 {
		return Params{}, invalid("initial_cash", "Initial cash must be positive")
	}
	if p.FastPeriod <= 0 {
		return Params{}, invalid("fast_period", "Fast period must be positive")
	}
	if p.SlowPeriod <= 0 {
		return Params{}, invalid("slow_period", "Slow period must be positive")
	}
	if p.FastPeriod >= p.SlowPeriod {
		return Params{}, invalid("fast_period", "Fast period must be less than slow period")
	}
	if v.limits.MaxPeriod > 0 && p.SlowPeriod > v.limits.MaxPeriod {
		return Params{}, invalid("slow_period", "Slow period must not exceed %d", v.limits.MaxPeriod)
	}
	if _, ok := v.registry.Get(p.Strategy); !ok {
		return Params{}, invalid("strategy", "Unknown strategy %q; available: %s",
			p.Strategy, strings.Join(v.registry.List(), ", "))
	}
	return p, nil
}

// translate turns the first validator field error into a ValidationError.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("", "Invalid request: %v", err)
	}
	fe := verrs[0]
	field := fe.StructField()

	switch {
	case fe.Tag() == "datetime":
		return invalid(jsonName(field), "Invalid date format. Use YYYY-MM-DD")
	case field == "Symbol" && fe.Tag() == "required":
		return invalid("symbol", "Symbol is required")
	case field == "Symbol":
		return invalid("symbol", "Invalid symbol %q", fe.Value())
	case fe.Tag() == "required":
		return invalid(jsonName(field), "%s is required", jsonName(field))
	case field == "InitialCash":
		return invalid("initial_cash", "Initial cash must be positive")
	case field == "FastPeriod":
		return invalid("fast_period", "Fast period must be positive")
	case field == "SlowPeriod":
		return invalid("slow_period", "Slow period must be positive")
	}
	return invalid(jsonName(field), "Invalid value for %s", jsonName(field))
}

func jsonName(field string) string {
	switch field {
	case "StartDate":
		return "start_date"
	case "EndDate":
		return "end_date"
	case "InitialCash":
		return "initial_cash"
	case "FastPeriod":
		return "fast_period"
	case "SlowPeriod":
		return "slow_period"
	}
	return strings.ToLower(field)
}
