package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"tradingcase/internal/domain"
	"tradingcase/internal/engine"
	"tradingcase/internal/httpapi"
	"tradingcase/internal/metrics"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tradingcase.v1.BacktestService"

// Full method names.
const (
	RunBacktestMethod    = "/" + ServiceName + "/RunBacktest"
	ListStrategiesMethod = "/" + ServiceName + "/ListStrategies"
)

// BacktestServer is the server API for the backtest service. Messages are
// google.protobuf.Struct values carrying the same JSON objects as the HTTP
// API.
type BacktestServer interface {
	RunBacktest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStrategies(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// BacktestServiceDesc describes the backtest service for grpc.Server.
var BacktestServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BacktestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunBacktest", Handler: runBacktestHandler},
		{MethodName: "ListStrategies", Handler: listStrategiesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradingcase/v1/backtest.proto",
}

func runBacktestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServer).RunBacktest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunBacktestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServer).RunBacktest(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listStrategiesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServer).ListStrategies(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListStrategiesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServer).ListStrategies(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var _ BacktestServer = (*BacktestService)(nil)

// BacktestService implements BacktestServer on top of the engine.
type BacktestService struct {
	backtests httpapi.Backtests
	timeout   time.Duration
}

// NewBacktestService creates a BacktestService. A positive timeout bounds
// each run in addition to the caller's deadline.
func NewBacktestService(b httpapi.Backtests, timeout time.Duration) *BacktestService {
	return &BacktestService{backtests: b, timeout: timeout}
}

// RegisterGRPC registers the service on the given gRPC server instance.
func (s *BacktestService) RegisterGRPC(gs *grpc.Server) {
	gs.RegisterService(&BacktestServiceDesc, s)
}

// RunBacktest runs one backtest. The request struct has the fields of the
// HTTP request body; the response struct has the fields of the HTTP report.
func (s *BacktestService) RunBacktest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req engine.Request
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Invalid request: %v", err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	report, err := s.backtests.Run(ctx, req)
	if err != nil {
		return nil, statusFor(err)
	}
	return toStruct(report)
}

// ListStrategies returns {"strategies": [...]}.
func (s *BacktestService) ListStrategies(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(httpapi.StrategiesFrom(s.backtests.Strategies()))
}

// statusFor maps an engine error to a gRPC status.
func statusFor(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters), errors.Is(err, domain.ErrEmptyInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDataUnavailable), errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, "Backtest execution failed: "+err.Error())
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

// unaryInterceptor logs and records metrics for every unary call.
func unaryInterceptor(m *metrics.Metrics, log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		m.ObserveRequest("grpc", info.FullMethod, code.String(), elapsed)
		log.Debug("grpc call", "method", info.FullMethod, "code", code.String(), "elapsed", elapsed.Round(time.Microsecond))
		return resp, err
	}
}

// Client calls the backtest service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a Client on cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RunBacktest runs a backtest remotely.
func (c *Client) RunBacktest(ctx context.Context, req engine.Request, opts ...grpc.CallOption) (*domain.Report, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RunBacktestMethod, in, out, opts...); err != nil {
		return nil, err
	}
	var report domain.Report
	if err := fromStruct(out, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListStrategies lists the server's strategies.
func (c *Client) ListStrategies(ctx context.Context, opts ...grpc.CallOption) (*httpapi.StrategiesResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListStrategiesMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	var resp httpapi.StrategiesResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
