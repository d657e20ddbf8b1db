package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"tradingcase/internal/api"
	"tradingcase/internal/app"
	"tradingcase/internal/config"
	"tradingcase/internal/domain"
	"tradingcase/internal/engine"
	"tradingcase/internal/httpapi"
	"tradingcase/internal/marketdata"
	"tradingcase/internal/store"
	"tradingcase/pkg/tradingcase"
)

const cliTimeout = 2 * time.Minute

func runVersion(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", httpapi.ServiceName, httpapi.Version)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
	defer cancel()

	h, err := tradingcase.NewClient(serverURL).Health(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), h)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", h.Service, h.Status)
	return nil
}

func runStrategies(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
	defer cancel()

	list, err := tradingcase.NewClient(serverURL).Strategies(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), list)
	}
	for _, s := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", s.Name, s.Description)
	}
	return nil
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
	defer cancel()

	if grpcAddr != "" {
		return runBacktestGRPC(ctx, cmd.OutOrStdout())
	}

	res, err := tradingcase.NewClient(serverURL).Backtest(ctx, tradingcase.BacktestRequest{
		Symbol:      symbol,
		StartDate:   startDate,
		EndDate:     endDate,
		InitialCash: initialCash,
		FastPeriod:  fastPeriod,
		SlowPeriod:  slowPeriod,
		Strategy:    strategy,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	// The SDK and server share the JSON shape, so reuse the domain printer.
	var report domain.Report
	if err := convert(res, &report); err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), &report)
	return nil
}

func runBacktestGRPC(ctx context.Context, w io.Writer) error {
	cc, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing %s: %w", grpcAddr, err)
	}
	defer cc.Close()

	report, err := api.NewClient(cc).RunBacktest(ctx, engineRequest())
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, report)
	}
	printReport(w, report)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
	defer cancel()
	client := tradingcase.NewClient(serverURL)

	if len(args) == 1 {
		res, err := client.GetBacktest(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		var report domain.Report
		if err := convert(res, &report); err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), &report)
		return nil
	}

	runs, err := client.History(ctx, historyLimit)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), runs)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSYMBOL\tRANGE\tSTRATEGY\tP/L %\tTRADES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s..%s\t%s\t%.2f\t%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Symbol, r.StartDate, r.EndDate,
			r.Strategy, r.ProfitLossPercent, r.TotalTrades)
	}
	return tw.Flush()
}

func runCached(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	symbols, err := store.NewParquetStore(cfg.Storage.DataDir).ListSymbols(cmd.Context(), store.DefaultMarket)
	if err != nil {
		return fmt.Errorf("listing cached symbols: %w", err)
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), symbols)
	}
	for _, s := range symbols {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}

func runLocal(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{
		NoHistory: true,
		Provider:  marketdata.NewSyntheticProvider(),
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Engine.Run(cmd.Context(), engineRequest())
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// engineRequest builds a request from the flags. Zero flags stay nil so
// defaults apply.
func engineRequest() engine.Request {
	req := engine.Request{
		Symbol:    symbol,
		StartDate: startDate,
		EndDate:   endDate,
		Strategy:  strategy,
	}
	if initialCash != 0 {
		req.InitialCash = &initialCash
	}
	if fastPeriod != 0 {
		req.FastPeriod = &fastPeriod
	}
	if slowPeriod != 0 {
		req.SlowPeriod = &slowPeriod
	}
	return req
}

func printReport(w io.Writer, r *domain.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", r.ID)
	fmt.Fprintf(tw, "Symbol\t%s  %s..%s  (%d bars)\n", r.Symbol, r.StartDate, r.EndDate, r.Bars)
	fmt.Fprintf(tw, "Strategy\t%s  fast=%d slow=%d\n", r.Strategy, r.FastPeriod, r.SlowPeriod)
	fmt.Fprintf(tw, "Initial cash\t%.2f\n", r.InitialCash)
	fmt.Fprintf(tw, "Final cash\t%.2f\n", r.FinalCash)
	fmt.Fprintf(tw, "Profit/loss\t%.2f (%.2f%%)\n", r.ProfitLoss, r.ProfitLossPercent)
	fmt.Fprintf(tw, "Trades\t%d  won=%d lost=%d\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Fprintf(tw, "Max drawdown\t%.2f (%.2f%%)\n", r.MaxDrawdown, r.MaxDrawdownPercent)
	if p := r.OpenPosition; p != nil {
		fmt.Fprintf(tw, "Open position\t%.6f @ %.2f since %s  unrealized %.2f\n",
			p.Qty, p.EntryPrice, p.EntryTime.Format(time.DateOnly), r.UnrealizedPnL)
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func convert(from, to any) error {
	b, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, to)
}
