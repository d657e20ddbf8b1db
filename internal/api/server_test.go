package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"tradingcase/internal/domain"
	"tradingcase/internal/engine"
	"tradingcase/internal/httpapi"
	"tradingcase/internal/metrics"
	"tradingcase/internal/strategy/builtins"
)

type closesProvider struct{ closes []float64 }

func (p *closesProvider) Name() string { return "closes" }

func (p *closesProvider) Fetch(_ context.Context, symbol string, start, _ time.Time) ([]domain.Bar, error) {
	bars := make([]domain.Bar, len(p.closes))
	for i, c := range p.closes {
		bars[i] = domain.Bar{Symbol: symbol, Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	return bars, nil
}

var roundTrip = []float64{10, 10, 10, 10, 10, 12, 14, 16, 18, 20, 18, 14, 10, 8, 6}

func newEngine(closes []float64) *engine.Engine {
	return engine.New(engine.Options{
		Provider: &closesProvider{closes: closes},
		Registry: builtins.NewRegistry(),
		Defaults: engine.Defaults{InitialCash: 100000, FastPeriod: 10, SlowPeriod: 30, Strategy: builtins.SMACrossName},
	})
}

func ptr[T any](v T) *T { return &v }

// dialBufconn serves srv on an in-memory listener and returns a client conn.
func dialBufconn(t *testing.T, srv *Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go srv.GRPCServer().Serve(lis)
	t.Cleanup(srv.GRPCServer().Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestServer(closes []float64, m *metrics.Metrics) *Server {
	eng := newEngine(closes)
	return NewServer("127.0.0.1:0", "127.0.0.1:0",
		httpapi.NewServer(eng, m, 0, nil).Handler(),
		NewBacktestService(eng, 5*time.Second), m, nil)
}

func TestRunBacktestOverGRPC(t *testing.T) {
	conn := dialBufconn(t, newTestServer(roundTrip, nil))
	client := NewClient(conn)

	report, err := client.RunBacktest(context.Background(), engine.Request{
		Symbol:      "aapl",
		StartDate:   "2024-01-01",
		EndDate:     "2024-02-01",
		InitialCash: ptr(1000.0),
		FastPeriod:  ptr(2),
		SlowPeriod:  ptr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", report.Symbol)
	assert.Equal(t, 1166.67, report.FinalCash)
	assert.Equal(t, 1, report.WinningTrades)
	assert.Equal(t, 30.0, report.MaxDrawdownPercent)
	assert.Equal(t, 5, report.SlowPeriod)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, 14.0, report.Trades[0].ExitPrice)
}

func TestRunBacktestErrorCodes(t *testing.T) {
	conn := dialBufconn(t, newTestServer(nil, nil))
	client := NewClient(conn)
	ctx := context.Background()

	_, err := client.RunBacktest(ctx, engine.Request{Symbol: "AAPL", StartDate: "2024-02-01", EndDate: "2024-01-01"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "Start date must be before end date", status.Convert(err).Message())

	_, err = client.RunBacktest(ctx, engine.Request{Symbol: "AAPL", StartDate: "2024-01-01", EndDate: "2024-02-01"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRunBacktestMalformedStruct(t *testing.T) {
	conn := dialBufconn(t, newTestServer(roundTrip, nil))

	in, err := toStruct(map[string]any{"symbol": "AAPL", "fast_period": 2.5})
	require.NoError(t, err)
	err = conn.Invoke(context.Background(), RunBacktestMethod, in, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListStrategiesOverGRPC(t *testing.T) {
	conn := dialBufconn(t, newTestServer(nil, nil))
	resp, err := NewClient(conn).ListStrategies(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Strategies, 2)
	assert.Equal(t, "MovingAverageCrossover", resp.Strategies[1].Name)
	assert.Contains(t, resp.Strategies[1].Parameters, "fast_period")
}

func TestHealthService(t *testing.T) {
	conn := dialBufconn(t, newTestServer(nil, nil))
	hc := healthpb.NewHealthClient(conn)

	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, codes.InvalidArgument, status.Code(statusFor(domain.ErrEmptyInput)))
	assert.Equal(t, codes.NotFound, status.Code(statusFor(domain.ErrNotFound)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(statusFor(context.DeadlineExceeded)))
	assert.Equal(t, codes.Internal, status.Code(statusFor(domain.ErrInternal)))
}

func TestServeAndShutdown(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(roundTrip, m)

	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, httpLn, grpcLn) }()

	resp, err := http.Get("http://" + httpLn.Addr().String() + "/api/health")
	require.NoError(t, err)
	var health httpapi.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health.Status)

	conn, err := grpc.NewClient(grpcLn.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	_, err = NewClient(conn).ListStrategies(context.Background())
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
