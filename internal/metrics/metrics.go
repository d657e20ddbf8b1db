// Package metrics holds the Prometheus collectors for the backtest service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradingcase"

// Run outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// UnknownStrategy labels runs whose strategy name is not registered.
const UnknownStrategy = "unknown"

// Metrics owns a registry and the collectors registered on it. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// runsTotal counts backtest runs.
	// Labels: strategy, outcome (success, invalid, unavailable, error)
	runsTotal *prometheus.CounterVec

	// runDuration measures end-to-end run latency including data fetch.
	// Labels: strategy
	runDuration *prometheus.HistogramVec

	// barsPerRun and tradesPerRun describe successful runs.
	barsPerRun   prometheus.Histogram
	tradesPerRun prometheus.Histogram

	// requestsTotal counts transport requests.
	// Labels: transport (http, grpc), route, code
	requestsTotal *prometheus.CounterVec

	// requestDuration measures transport latency.
	// Labels: transport, route
	requestDuration *prometheus.HistogramVec
}

// New creates Metrics on a fresh registry that also carries the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
		barsPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars",
			Help:      "Bars simulated per successful run",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
		}),
		tradesPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades",
			Help:      "Closed trades per successful run",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by transport, route and status code",
		}, []string{"transport", "route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records one backtest run. bars and trades are only observed on
// success.
func (m *Metrics) ObserveRun(strategy, outcome string, elapsed time.Duration, bars, trades int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(strategy, outcome).Inc()
	m.runDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.barsPerRun.Observe(float64(bars))
		m.tradesPerRun.Observe(float64(trades))
	}
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(transport, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(transport, route, code).Inc()
	m.requestDuration.WithLabelValues(transport, route).Observe(elapsed.Seconds())
}
