package backtest

import (
	"errors"
	"fmt"

	"pulse/internal/event"
	"pulse/internal/exchange"
	"pulse/internal/logger"
	"pulse/internal/portfolio"
	"pulse/internal/strategy"
)

const defaultRiskFreeRate = 0.02

var (
	ErrNoData       = errors.New("no historical data loaded")
	ErrNoStrategies = errors.New("no strategies added")
	ErrEmptyFilter  = errors.New("no data after applying filters")
)

// Backtester replays a sorted trade log through an engine it owns: its
// own bus, portfolio, deterministic venue, and strategy manager. Each
// backtester is fully isolated; running several in one process never
// cross-talks.
type Backtester struct {
	initialCapital float64

	bus     *event.Bus
	pf      *portfolio.Portfolio
	venue   *exchange.Simulator
	manager *strategy.Manager

	strategies []strategy.Strategy
	data       []TradeRecord
	snapshots  []Snapshot

	hasRange bool
	startTS  int64
	endTS    int64
	symbols  []string
}

// New builds a backtester with the given capital and risk limits. The
// portfolio is constructed before the manager so the ledger's FILL
// subscription runs ahead of any strategy's.
func New(cfg portfolio.Config) *Backtester {
	bus := event.NewBus()
	return &Backtester{
		initialCapital: cfg.InitialCapital,
		bus:            bus,
		pf:             portfolio.New(bus, cfg),
		venue:          exchange.NewSimulator(bus, exchange.DeterministicConfig()),
		manager:        strategy.NewManager(bus),
	}
}

// Portfolio exposes the owned portfolio so strategies can be built
// against it before AddStrategy.
func (b *Backtester) Portfolio() *portfolio.Portfolio { return b.pf }

// Bus exposes the replay bus, mainly for tests and observers.
func (b *Backtester) Bus() *event.Bus { return b.bus }

// AddStrategy registers a strategy for the run.
func (b *Backtester) AddStrategy(s strategy.Strategy) {
	b.strategies = append(b.strategies, s)
	b.manager.Add(s)
}

// LoadCSV loads the trade log from a CSV file.
func (b *Backtester) LoadCSV(path string) error {
	data, err := LoadCSV(path)
	if err != nil {
		return err
	}
	b.data = data
	return nil
}

// LoadData installs a pre-parsed trade log.
func (b *Backtester) LoadData(data []TradeRecord) {
	b.data = append([]TradeRecord(nil), data...)
}

// SetTimeRange restricts the replay to start <= ts <= end, inclusive.
func (b *Backtester) SetTimeRange(start, end int64) {
	b.hasRange = true
	b.startTS = start
	b.endTS = end
}

// SetSymbols restricts the replay to the given symbols.
func (b *Backtester) SetSymbols(symbols []string) {
	b.symbols = append([]string(nil), symbols...)
}

// Run replays the filtered trade log and returns the metrics.
func (b *Backtester) Run() (Results, error) {
	if len(b.data) == 0 {
		return Results{}, ErrNoData
	}
	if len(b.strategies) == 0 {
		return Results{}, ErrNoStrategies
	}

	filtered := b.data
	if b.hasRange {
		filtered = FilterByTimeRange(filtered, b.startTS, b.endTS)
	}
	if len(b.symbols) > 0 {
		var kept []TradeRecord
		for _, sym := range b.symbols {
			kept = append(kept, FilterBySymbol(filtered, sym)...)
		}
		SortByTimestamp(kept)
		filtered = kept
	}
	if len(filtered) == 0 {
		return Results{}, ErrEmptyFilter
	}

	b.snapshots = b.snapshots[:0]
	b.venue.Start()
	b.manager.StartAll()

	logger.Infof("backtest: replaying %d records", len(filtered))

	lastPrice := make(map[string]float64)
	b.takeSnapshot(filtered[0].Timestamp, lastPrice)

	for _, rec := range filtered {
		b.venue.SetMark(rec.Symbol, rec.Price)
		lastPrice[rec.Symbol] = rec.Price

		// Synchronous dispatch: strategy, risk, venue, and ledger all
		// complete before Publish returns, so the snapshot below sees
		// the fully settled state for this step.
		b.bus.Publish(event.NewTrade(rec.Symbol, rec.Price, rec.Volume))

		b.takeSnapshot(rec.Timestamp, lastPrice)
	}

	b.manager.StopAll()
	b.venue.Stop()

	return ComputeResults(b.snapshots, b.initialCapital, defaultRiskFreeRate), nil
}

// Snapshots returns the per-step portfolio snapshots of the last run.
func (b *Backtester) Snapshots() []Snapshot {
	return b.snapshots
}

// Reset rebuilds the engine for a fresh run. Strategies are dropped and
// must be re-added against the new Portfolio.
func (b *Backtester) Reset() {
	b.manager.Close()
	b.pf.Close()
	b.venue.Stop()

	b.bus = event.NewBus()
	b.pf = portfolio.New(b.bus, portfolio.Config{
		InitialCapital:      b.initialCapital,
		MaxPositionNotional: b.pf.MaxPositionNotional(),
		MaxGrossExposure:    b.pf.MaxGrossExposure(),
	})
	b.venue = exchange.NewSimulator(b.bus, exchange.DeterministicConfig())
	b.manager = strategy.NewManager(b.bus)
	b.strategies = nil
	b.data = nil
	b.snapshots = nil
	b.hasRange = false
	b.symbols = nil
}

// takeSnapshot marks held symbols at their most recent trade price.
func (b *Backtester) takeSnapshot(ts int64, lastPrice map[string]float64) {
	marks := make(map[string]float64)
	for _, pos := range b.pf.Ledger().Positions() {
		if px, ok := lastPrice[pos.Symbol]; ok {
			marks[pos.Symbol] = px
		}
	}
	b.snapshots = append(b.snapshots, Snapshot{
		Timestamp:     ts,
		Value:         b.pf.Value(marks),
		Cash:          b.pf.Cash(),
		RealizedPnL:   b.pf.RealizedPnL(),
		UnrealizedPnL: b.pf.UnrealizedPnL(marks),
	})
}

// Describe returns a one-line summary for logs.
func (b *Backtester) Describe() string {
	return fmt.Sprintf("backtester capital=%.2f records=%d strategies=%d", b.initialCapital, len(b.data), len(b.strategies))
}
