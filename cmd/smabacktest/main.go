package main

import (
	"flag"
	"fmt"
	"os"

	"pulse/internal/backtest"
	"pulse/internal/config"
	"pulse/internal/logger"
	"pulse/internal/portfolio"
	"pulse/internal/strategy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "smabacktest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataFile := flag.String("data", "data/historical_trades.csv", "historical trades CSV")
	symbol := flag.String("symbol", "AAPL", "symbol to trade")
	reportPath := flag.String("report", "", "write an equity-curve HTML report to this path")
	noStore := flag.Bool("no-store", false, "skip persisting the run")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("PULSE_CONFIG"))
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.App.LogLevel)

	fmt.Println("=== SMA Strategy Backtest ===")
	fmt.Printf("capital: $%.2f  data: %s  symbol: %s\n", cfg.Portfolio.InitialCapital, *dataFile, *symbol)
	fmt.Printf("sma: fast=%d slow=%d size=%d\n\n", cfg.Strategy.SMA.FastPeriod, cfg.Strategy.SMA.SlowPeriod, cfg.Strategy.SMA.PositionSize)

	bt := backtest.New(portfolio.Config{
		InitialCapital:      cfg.Portfolio.InitialCapital,
		MaxPositionNotional: cfg.Portfolio.MaxPositionSize,
		MaxGrossExposure:    cfg.Portfolio.MaxPortfolioExposure,
	})

	sma := strategy.NewSMA("sma_"+*symbol, bt.Portfolio(), *symbol, strategy.SMAConfig{
		Fast:         cfg.Strategy.SMA.FastPeriod,
		Slow:         cfg.Strategy.SMA.SlowPeriod,
		PositionSize: cfg.Strategy.SMA.PositionSize,
	})
	bt.AddStrategy(sma)
	bt.SetSymbols([]string{*symbol})

	if err := bt.LoadCSV(*dataFile); err != nil {
		return err
	}

	results, err := bt.Run()
	if err != nil {
		return err
	}
	fmt.Println(results)

	pf := bt.Portfolio()
	fmt.Println("Final Portfolio State:")
	fmt.Printf("  Cash: $%.2f\n", pf.Cash())
	fmt.Printf("  Realized P&L: $%.2f\n", pf.RealizedPnL())
	positions := pf.Ledger().Positions()
	if len(positions) == 0 {
		fmt.Println("  No open positions")
	}
	for _, pos := range positions {
		fmt.Printf("  %s: %d @ $%.2f (realized $%.2f)\n", pos.Symbol, pos.Qty, pos.AvgPrice, pos.RealizedPnL)
	}

	if !*noStore && cfg.App.ResultsPath != "" {
		store, err := backtest.NewResultStore(cfg.App.ResultsPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := store.SaveRun("sma_"+*symbol, []string{*symbol}, results, bt.Snapshots(), cfg.Portfolio.InitialCapital)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun persisted: %s (%s)\n", runID, cfg.App.ResultsPath)
	}

	if *reportPath != "" {
		if err := backtest.WriteReport(*reportPath, "SMA backtest "+*symbol, bt.Snapshots(), results); err != nil {
			return err
		}
		fmt.Printf("report written: %s\n", *reportPath)
	}

	return nil
}
