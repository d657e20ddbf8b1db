package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingcase/internal/domain"
	"tradingcase/internal/store"
)

func TestEngineRequestLeavesZeroFlagsUnset(t *testing.T) {
	symbol, startDate, endDate = "AAPL", "2024-01-01", "2024-06-30"
	initialCash, fastPeriod, slowPeriod = 0, 5, 0
	t.Cleanup(func() { fastPeriod = 0 })

	req := engineRequest()
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Nil(t, req.InitialCash)
	assert.Nil(t, req.SlowPeriod)
	require.NotNil(t, req.FastPeriod)
	assert.Equal(t, 5, *req.FastPeriod)
}

func TestLocalRunPrintsReport(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"local-run",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--symbol", "MSFT",
		"--start", "2023-01-01",
		"--end", "2023-12-31",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "MSFT  2023-01-01..2023-12-31  (260 bars)")
	assert.Contains(t, out.String(), "MovingAverageCrossover  fast=10 slow=30")
}

func TestCachedListsParquetSymbols(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.NewParquetStore(dir).WriteBars(context.Background(), []domain.Bar{
		{Symbol: "msft", Timestamp: day, Close: 300},
		{Symbol: "AAPL", Timestamp: day, Close: 150},
	}))

	cfgPath := filepath.Join(t.TempDir(), "tradingcase.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  data_dir: "+dir+"\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"cached", "--config", cfgPath})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "AAPL\nMSFT\n", out.String())
}
