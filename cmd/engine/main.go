package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"pulse/internal/app"
	"pulse/internal/config"
	"pulse/internal/event"
	"pulse/internal/logger"
	"pulse/internal/perf"
)

// engine runs a short self-contained session against the simulated
// venue: synthetic quotes and trades for a couple of symbols, an SMA
// strategy trading through the risk gate, and a latency report over the
// observed event ages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("PULSE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	// The demo session wants inline fills so the printed order flow is
	// complete by the time the loop ends.
	cfg.Exchange.InstantFills = true
	cfg.App.ResultsPath = ""

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	if cfg.App.ProfilesPath != "" {
		profiles, err := config.LoadProfiles(cfg.App.ProfilesPath, cfg.Strategy.SMA)
		if err != nil {
			return err
		}
		a.RegisterProfiles(profiles)
	} else {
		a.RegisterProfiles([]config.StrategyProfile{{
			Name:         "sma_aapl",
			Symbol:       "AAPL",
			FastPeriod:   5,
			SlowPeriod:   12,
			PositionSize: 100,
		}})
	}

	if cfgPath != "" {
		if err := a.WatchConfig(cfgPath); err != nil {
			logger.Warnf("engine: config watch unavailable: %v", err)
		}
	}

	var stats perf.LatencyStats
	stats.Reserve(4096)
	a.Bus.Subscribe(event.MarketData, func(e event.Event) {
		stats.AddSample(uint64(e.Age().Microseconds()))
	})
	a.Bus.Subscribe(event.System, func(e event.Event) {
		if se, ok := e.(*event.SystemEvent); ok {
			logger.Infof("[system] %s: %s", se.SystemType, se.Message)
		}
	})
	a.Bus.Subscribe(event.Timer, func(e event.Event) {
		if te, ok := e.(*event.TimerEvent); ok {
			logger.Infof("[timer] %s fired", te.Name)
		}
	})
	a.Bus.Subscribe(event.Order, func(e event.Event) {
		if oe, ok := e.(*event.OrderEvent); ok {
			logger.Infof("[order] %s %s %s %s %d @ %.2f (filled %d)",
				oe.OrderID, oe.Symbol, oe.Side, oe.Status, oe.Qty, oe.Price, oe.FilledQty)
		}
	})
	a.Bus.Subscribe(event.Fill, func(e event.Event) {
		if fe, ok := e.(*event.FillEvent); ok {
			logger.Infof("[fill] %s %s %s %d @ %.2f exec=%s",
				fe.OrderID, fe.Symbol, fe.Side, fe.FillQty, fe.FillPrice, fe.ExecutionID)
		}
	})

	a.Bus.Publish(event.NewSystem(event.Startup, "engine starting"))
	a.Venue.Start()
	a.Manager.StartAll()
	a.Bus.Publish(event.NewSystem(event.TradingStart, "trading session started"))
	a.Scheduler.After(50*time.Millisecond, "session_heartbeat")

	feedSyntheticSession(a)

	a.Bus.Publish(event.NewSystem(event.TradingStop, "trading session stopped"))
	a.Manager.StopAll()
	a.Venue.Stop()
	a.Scheduler.Close()

	printSummary(a, &stats)
	a.Bus.Publish(event.NewSystem(event.Shutdown, "engine stopped"))
	return nil
}

// feedSyntheticSession publishes a random-walk tape for two symbols.
func feedSyntheticSession(a *app.App) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	prices := map[string]float64{"AAPL": 150.00, "TSLA": 250.00}
	symbols := []string{"AAPL", "TSLA"}

	for i := 0; i < 200; i++ {
		for _, sym := range symbols {
			px := prices[sym] * (1 + (rng.Float64()-0.5)*0.004)
			prices[sym] = px

			spread := px * 0.0002
			a.Bus.Publish(event.NewQuote(sym, px-spread/2, px+spread/2, 100+rng.Int63n(400), 100+rng.Int63n(400)))

			a.Venue.SetMark(sym, px)
			a.Bus.Publish(event.NewTrade(sym, px, 100+rng.Int63n(900)))
		}
	}
}

func printSummary(a *app.App, stats *perf.LatencyStats) {
	fmt.Println("\n=== Session Summary ===")
	fmt.Printf("events dispatched: %d\n", a.Bus.EventCount())
	fmt.Printf("cash: $%.2f (initial $%.2f)\n", a.Portfolio.Cash(), a.Portfolio.InitialCapital())
	fmt.Printf("realized P&L: $%.2f\n", a.Portfolio.RealizedPnL())

	for _, pos := range a.Portfolio.Ledger().Positions() {
		fmt.Printf("position %s: %d @ $%.2f (realized $%.2f)\n", pos.Symbol, pos.Qty, pos.AvgPrice, pos.RealizedPnL)
	}
	for _, top := range a.Books.TopOfBooks() {
		fmt.Printf("book %s: bid %.2f x %d | ask %.2f x %d | spread %.4f\n",
			top.Symbol, top.BidPrice, top.BidSize, top.AskPrice, top.AskSize, top.Spread)
	}

	stats.Calculate()
	fmt.Println()
	fmt.Print(stats.Report("market data latency"))
}
