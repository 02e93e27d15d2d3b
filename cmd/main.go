// Command memescout runs the token momentum decision engine against a
// fixture or live market source, replays historical candle datasets, or
// collects reference OHLCV history.
//
// Usage:
//
//	memescout engine [--config config.yaml] [--iterations 240] [--swap confirm|auto]
//	memescout backtest --data ./data [--config config.yaml] [--max-pairs 20]
//	memescout collect --symbol SOLUSDT --out ./data/SOL_USDT.csv
//
// Collect requires BINANCE_API_KEY and BINANCE_API_SECRET.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/memescout/memescout/config"
	"github.com/memescout/memescout/internal/backtest"
	"github.com/memescout/memescout/internal/engine"
	"github.com/memescout/memescout/internal/metrics"
	"github.com/memescout/memescout/internal/providers/chain"
	"github.com/memescout/memescout/internal/providers/market"
	"github.com/memescout/memescout/internal/providers/swap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "engine":
		runEngine(os.Args[2:])
	case "backtest":
		runBacktest(os.Args[2:])
	case "collect":
		runCollect(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: memescout <engine|backtest|collect> [flags]")
	os.Exit(2)
}

func runEngine(args []string) {
	fs := flag.NewFlagSet("engine", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	iterations := fs.Int("iterations", 0, "tick count, 0 uses the config value")
	logDir := fs.String("log-dir", "runs", "base directory for run artifacts")
	swapMode := fs.String("swap", "", "enable simulated swaps: confirm or auto")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	source := market.NewFixtureSource(market.DefaultFixtureParams())
	set := metrics.NewSet()
	opts := []engine.EngineOption{
		engine.WithChainIntel(chain.NewFixtureIntel()),
		engine.WithMetrics(set),
		engine.WithLogDir(*logDir),
	}
	if *swapMode != "" {
		router, err := swap.NewSimulatedRouter(*swapMode, cfg.Risk.MinLiquidityUSD*2, 30)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, engine.WithSwapService(router))
	}

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go func() {
			if err := set.Serve(addr); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	eng := engine.NewEngine(cfg, logger, source, opts...)
	result, err := eng.Run(context.Background(), *iterations)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info("run complete",
		zap.String("run_dir", result.RunDir),
		zap.Int("decisions", len(result.Decisions)))
}

func runBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	dataDir := fs.String("data", "", "directory of candle files (jsonl, jsonl.gz, json, csv)")
	maxPairs := fs.Int("max-pairs", 20, "cap on pair files loaded")
	outDir := fs.String("out", "backtests", "base directory for backtest artifacts")
	fs.Parse(args)

	if *dataDir == "" {
		log.Fatal("backtest requires --data")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	result, err := backtest.RunBacktest(*dataDir, cfg, *maxPairs, *outDir)
	if err != nil {
		log.Fatal(err)
	}
	combined := result.Summary.Combined
	fmt.Printf("backtest complete: %d pairs, %d trades, total return %.2f%% (artifacts in %s)\n",
		result.Summary.PairCount, combined.TradeCount, combined.TotalReturnPct*100, result.RunDir)
}

func runCollect(args []string) {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	symbol := fs.String("symbol", "SOLUSDT", "exchange symbol")
	interval := fs.String("interval", "1m", "candle interval")
	fromHours := fs.Int("from-hours", 48, "collection window start, hours ago")
	toHours := fs.Int("to-hours", 0, "collection window end, hours ago")
	out := fs.String("out", "", "output CSV path")
	fs.Parse(args)

	if *out == "" {
		log.Fatal("collect requires --out")
	}
	collector, err := market.NewHistoryCollector()
	if err != nil {
		log.Fatal(err)
	}
	if err := collector.Collect(context.Background(), *symbol, *interval, *fromHours, *toHours, *out); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("collected %s %s candles into %s\n", *symbol, *interval, *out)
}
