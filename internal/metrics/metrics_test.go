package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun("MovingAverageCrossover", OutcomeSuccess, 20*time.Millisecond, 250, 3)
	m.ObserveRun("MovingAverageCrossover", OutcomeInvalid, time.Millisecond, 0, 0)
	m.ObserveRun("MovingAverageCrossover", OutcomeSuccess, time.Millisecond, 10, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("MovingAverageCrossover", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("MovingAverageCrossover", OutcomeInvalid)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("http", "POST /api/backtest", "200", time.Millisecond)
	m.ObserveRequest("http", "POST /api/backtest", "400", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("http", "POST /api/backtest", "400")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestsTotal))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.ObserveRun("BuyAndHold", OutcomeSuccess, time.Millisecond, 5, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `tradingcase_backtest_runs_total{outcome="success",strategy="BuyAndHold"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("x", OutcomeError, time.Second, 0, 0)
		m.ObserveRequest("grpc", "/x", "OK", time.Second)
	})
	assert.Nil(t, m.Registry())
}
