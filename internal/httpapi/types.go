// Package httpapi serves the backtest REST API over net/http.
package httpapi

import (
	"tradingcase/internal/domain"
	"tradingcase/internal/strategy"
)

// Service name and version reported by the informational endpoints.
const (
	ServiceName = "trading-case-api"
	Version     = "1.0.0"
)

// StrategyJSON describes one available strategy.
type StrategyJSON struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
}

// StrategiesResponse is returned by GET /api/strategies.
type StrategiesResponse struct {
	Strategies []StrategyJSON `json:"strategies"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HistoryResponse is returned by GET /api/backtests.
type HistoryResponse struct {
	Runs []domain.Report `json:"runs"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StrategiesFrom converts registry descriptors to their JSON form.
func StrategiesFrom(ds []strategy.Descriptor) StrategiesResponse {
	out := StrategiesResponse{Strategies: make([]StrategyJSON, 0, len(ds))}
	for _, d := range ds {
		params := d.Parameters
		if params == nil {
			params = map[string]string{}
		}
		out.Strategies = append(out.Strategies, StrategyJSON{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return out
}
