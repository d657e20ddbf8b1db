// Package tradingcase is a Go SDK for the tradingcase backtest HTTP API.
package tradingcase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BacktestRequest is the body of POST /api/backtest. Zero-valued optional
// fields are omitted so the server applies its defaults.
type BacktestRequest struct {
	Symbol      string  `json:"symbol"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	InitialCash float64 `json:"initial_cash,omitempty"`
	FastPeriod  int     `json:"fast_period,omitempty"`
	SlowPeriod  int     `json:"slow_period,omitempty"`
	Strategy    string  `json:"strategy,omitempty"`
}

// Trade is a closed round trip.
type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	Fees       float64   `json:"fees"`
}

// Position is a lot still open at the end of a run.
type Position struct {
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	CostBasis  float64   `json:"cost_basis"`
}

// BacktestResult is a completed backtest report.
type BacktestResult struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	Symbol             string    `json:"symbol"`
	StartDate          string    `json:"start_date"`
	EndDate            string    `json:"end_date"`
	Strategy           string    `json:"strategy"`
	FastPeriod         int       `json:"fast_period"`
	SlowPeriod         int       `json:"slow_period"`
	InitialCash        float64   `json:"initial_cash"`
	FinalCash          float64   `json:"final_cash"`
	ProfitLoss         float64   `json:"profit_loss"`
	ProfitLossPercent  float64   `json:"profit_loss_percent"`
	TotalTrades        int       `json:"total_trades"`
	WinningTrades      int       `json:"winning_trades"`
	LosingTrades       int       `json:"losing_trades"`
	MaxDrawdown        float64   `json:"max_drawdown"`
	MaxDrawdownPercent float64   `json:"max_drawdown_percent"`
	Bars               int       `json:"bars"`
	UnrealizedPnL      float64   `json:"unrealized_pnl"`
	OpenPosition       *Position `json:"open_position,omitempty"`
	Trades             []Trade   `json:"trades,omitempty"`
}

// Strategy describes a strategy the server can run.
type Strategy struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tradingcase: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Client provides a Go SDK for interacting with the tradingcase-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tradingcase API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Strategies calls GET /api/strategies.
func (c *Client) Strategies(ctx context.Context) ([]Strategy, error) {
	var out struct {
		Strategies []Strategy `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &out); err != nil {
		return nil, err
	}
	return out.Strategies, nil
}

// Backtest calls POST /api/backtest.
func (c *Client) Backtest(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	var out BacktestResult
	if err := c.do(ctx, http.MethodPost, "/api/backtest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History calls GET /api/backtests. A non-positive limit uses the server
// default.
func (c *Client) History(ctx context.Context, limit int) ([]BacktestResult, error) {
	path := "/api/backtests"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Runs []BacktestResult `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// GetBacktest calls GET /api/backtests/{id}.
func (c *Client) GetBacktest(ctx context.Context, id string) (*BacktestResult, error) {
	var out BacktestResult
	if err := c.do(ctx, http.MethodGet, "/api/backtests/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
