package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"tradingcase/internal/api"
	"tradingcase/internal/app"
	"tradingcase/internal/config"
	"tradingcase/internal/httpapi"
	"tradingcase/internal/util"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfgPath := "config/tradingcase.yaml"
	if p := os.Getenv("TRADINGCASE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dual logger: stdout + optional log file.
	var w io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer logFile.Close()
		w = io.MultiWriter(os.Stdout, logFile)
	}
	logger := util.NewLoggerTo(w, cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	a, err := app.New(cfg, app.Options{}, logger)
	if err != nil {
		log.Fatalf("failed to initialise: %v", err)
	}
	defer a.Close()

	httpAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	grpcAddr := ""
	if cfg.Server.GRPCPort > 0 {
		grpcAddr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort))
	}

	handler := httpapi.NewServer(a.Engine, a.Metrics, cfg.Server.RequestTimeout, logger).Handler()
	svc := api.NewBacktestService(a.Engine, cfg.Server.RequestTimeout)
	srv := api.NewServer(httpAddr, grpcAddr, handler, svc, a.Metrics, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting tradingcase-server",
		"http", httpAddr,
		"grpc", grpcAddr,
		"provider", a.Provider.Name(),
		"config", cfgPath,
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}
