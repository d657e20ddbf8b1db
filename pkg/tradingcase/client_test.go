package tradingcase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8000/")
	require.NotNil(t, c)
	assert.Equal(t, "http://localhost:8000", c.baseURL)
}

func TestBacktest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/backtest", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "AAPL", body["symbol"])
		assert.NotContains(t, body, "initial_cash", "zero optional fields are omitted")
		assert.Equal(t, 5.0, body["slow_period"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc","symbol":"AAPL","final_cash":1166.67,"total_trades":1,
			"trades":[{"entry_date":"2024-01-06T00:00:00Z","entry_price":12,"exit_date":"2024-01-12T00:00:00Z","exit_price":14,"quantity":83.333333,"pnl":166.67,"fees":0}]}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Backtest(context.Background(), BacktestRequest{
		Symbol: "AAPL", StartDate: "2024-01-01", EndDate: "2024-02-01", FastPeriod: 2, SlowPeriod: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.ID)
	assert.Equal(t, 1166.67, res.FinalCash)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, 14.0, res.Trades[0].ExitPrice)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Fast period must be less than slow period"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Backtest(context.Background(), BacktestRequest{Symbol: "AAPL"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Fast period must be less than slow period", apiErr.Message)
}

func TestStrategiesHealthHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy","service":"trading-case-api"}`))
	})
	mux.HandleFunc("GET /api/strategies", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"strategies":[{"name":"MovingAverageCrossover","description":"x","parameters":{"fast_period":"f"}}]}`))
	})
	mux.HandleFunc("GET /api/backtests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"runs":[{"id":"a"},{"id":"b"}]}`))
	})
	mux.HandleFunc("GET /api/backtests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"` + r.PathValue("id") + `"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)

	ss, err := c.Strategies(ctx)
	require.NoError(t, err)
	require.Len(t, ss, 1)
	assert.Equal(t, "f", ss[0].Parameters["fast_period"])

	runs, err := c.History(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	run, err := c.GetBacktest(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", run.ID)
}
