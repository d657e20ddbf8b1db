package main

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
	grpcAddr  string
	asJSON    bool

	symbol      string
	startDate   string
	endDate     string
	initialCash float64
	fastPeriod  int
	slowPeriod  int
	strategy    string

	historyLimit int
	configPath   string

	rootCmd = &cobra.Command{
		Use:   "tradingcase",
		Short: "Run and inspect moving-average crossover backtests",
		Long: `tradingcase talks to a running tradingcase-server over HTTP or gRPC,
or runs a backtest in-process against synthetic bars.`,
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run:   runVersion,
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		RunE:  runHealth,
	}

	strategiesCmd = &cobra.Command{
		Use:   "strategies",
		Short: "List the strategies the server can run",
		RunE:  runStrategies,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a backtest on the server",
		RunE:  runBacktest,
	}

	historyCmd = &cobra.Command{
		Use:   "history [id]",
		Short: "List recent runs, or show one run by id",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}

	cachedCmd = &cobra.Command{
		Use:   "cached",
		Short: "List symbols with bars in the local Parquet cache",
		RunE:  runCached,
	}

	localRunCmd = &cobra.Command{
		Use:   "local-run",
		Short: "Run a backtest in-process on synthetic bars",
		RunE:  runLocal,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "tradingcase-server base URL")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON")

	for _, c := range []*cobra.Command{runCmd, localRunCmd} {
		c.Flags().StringVar(&symbol, "symbol", "", "ticker symbol")
		c.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
		c.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
		c.Flags().Float64Var(&initialCash, "cash", 0, "initial cash (server default when 0)")
		c.Flags().IntVar(&fastPeriod, "fast", 0, "fast SMA period (server default when 0)")
		c.Flags().IntVar(&slowPeriod, "slow", 0, "slow SMA period (server default when 0)")
		c.Flags().StringVar(&strategy, "strategy", "", "strategy name")
		_ = c.MarkFlagRequired("symbol")
		_ = c.MarkFlagRequired("start")
		_ = c.MarkFlagRequired("end")
	}
	runCmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "use the gRPC endpoint at host:port instead of HTTP")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	for _, c := range []*cobra.Command{localRunCmd, cachedCmd} {
		c.Flags().StringVar(&configPath, "config", "config/tradingcase.yaml", "config file")
	}

	rootCmd.AddCommand(versionCmd, healthCmd, strategiesCmd, runCmd, historyCmd, cachedCmd, localRunCmd)
}
