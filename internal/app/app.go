package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pulse/internal/backtest"
	"pulse/internal/config"
	"pulse/internal/event"
	"pulse/internal/exchange"
	"pulse/internal/logger"
	"pulse/internal/marketdata"
	"pulse/internal/portfolio"
	"pulse/internal/strategy"
)

// App wires the engine graph: one bus, one portfolio (with its ledger),
// the simulated venue, the strategy manager, and observability (book
// manager, optional results HTTP). Construction order fixes bus
// subscription order: ledger and portfolio first so that on every fill
// the position settles before cash, and both before any strategy sees
// the event.
type App struct {
	cfg *config.Config

	Bus       *event.Bus
	Portfolio *portfolio.Portfolio
	Venue     *exchange.Simulator
	Manager   *strategy.Manager
	Books     *marketdata.BookManager
	Scheduler *event.Scheduler

	results *backtest.ResultStore
	httpSrv *backtest.HTTPServer

	watchStop func() error
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	bus := event.NewBus()
	pf := portfolio.New(bus, portfolio.Config{
		InitialCapital:      cfg.Portfolio.InitialCapital,
		MaxPositionNotional: cfg.Portfolio.MaxPositionSize,
		MaxGrossExposure:    cfg.Portfolio.MaxPortfolioExposure,
	})
	venue := exchange.NewSimulator(bus, exchange.Config{
		FillLatency:     time.Duration(cfg.Exchange.FillLatencyMs) * time.Millisecond,
		RejectionRate:   cfg.Exchange.RejectionRate,
		PartialFillRate: cfg.Exchange.PartialFillRate,
		SlippageBps:     cfg.Exchange.SlippageBps,
		InstantFills:    cfg.Exchange.InstantFills,
	})
	manager := strategy.NewManager(bus)
	books := marketdata.NewBookManager(bus)

	a := &App{
		cfg:       cfg,
		Bus:       bus,
		Portfolio: pf,
		Venue:     venue,
		Manager:   manager,
		Books:     books,
		Scheduler: event.NewScheduler(bus),
	}

	if cfg.App.ResultsPath != "" {
		store, err := backtest.NewResultStore(cfg.App.ResultsPath)
		if err != nil {
			return nil, fmt.Errorf("result store init failed: %w", err)
		}
		a.results = store
		srv, err := backtest.NewHTTPServer(backtest.HTTPConfig{Addr: cfg.App.HTTPAddr, Results: store})
		if err != nil {
			return nil, err
		}
		a.httpSrv = srv
	}

	return a, nil
}

// Results exposes the run store, nil when results are disabled.
func (a *App) Results() *backtest.ResultStore { return a.results }

// RegisterProfiles builds and registers one SMA strategy per profile
// entry.
func (a *App) RegisterProfiles(profiles []config.StrategyProfile) {
	for _, p := range profiles {
		sma := strategy.NewSMA(p.Name, a.Portfolio, p.Symbol, strategy.SMAConfig{
			Fast:         p.FastPeriod,
			Slow:         p.SlowPeriod,
			PositionSize: p.PositionSize,
		})
		a.Manager.Add(sma)
		logger.Infof("app: registered strategy %s on %s (fast=%d slow=%d size=%d)",
			p.Name, p.Symbol, p.FastPeriod, p.SlowPeriod, p.PositionSize)
	}
}

// WatchConfig publishes System(CONFIG_RELOAD) when path changes.
func (a *App) WatchConfig(path string) error {
	stop, err := config.Watch(path, a.Bus)
	if err != nil {
		return err
	}
	a.watchStop = stop
	return nil
}

// Run starts the venue and all strategies, then blocks until ctx is
// cancelled. The results HTTP server, when configured, runs alongside.
func (a *App) Run(ctx context.Context) error {
	a.Venue.Start()
	a.Manager.StartAll()
	a.Bus.Publish(event.NewSystem(event.TradingStart, "trading session started"))

	group, ctx := errgroup.WithContext(ctx)
	if a.httpSrv != nil {
		group.Go(func() error {
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("results http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-ctx.Done()
		a.shutdown()
		return nil
	})
	return group.Wait()
}

func (a *App) shutdown() {
	a.Bus.Publish(event.NewSystem(event.TradingStop, "trading session stopped"))
	a.Manager.StopAll()
	a.Venue.Stop()
	a.Scheduler.Close()
	if a.watchStop != nil {
		if err := a.watchStop(); err != nil {
			logger.Warnf("app: config watcher close failed: %v", err)
		}
	}
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			logger.Warnf("app: result store close failed: %v", err)
		}
	}
}

// Close tears the app down without Run having been called.
func (a *App) Close() {
	a.shutdown()
	a.Books.Close()
	a.Manager.Close()
	a.Portfolio.Close()
}
