package strategy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/event"
	"pulse/internal/exchange"
	"pulse/internal/portfolio"
)

func newTestRig(t *testing.T) (*event.Bus, *portfolio.Portfolio, *exchange.Simulator) {
	t.Helper()
	bus := event.NewBus()
	pf := portfolio.New(bus, portfolio.Config{
		InitialCapital:      1_000_000,
		MaxPositionNotional: 1_000_000,
		MaxGrossExposure:    5_000_000,
	})
	venue := exchange.NewSimulator(bus, exchange.DeterministicConfig())
	venue.Start()
	t.Cleanup(func() {
		venue.Stop()
		pf.Close()
	})
	return bus, pf, venue
}

func feed(bus *event.Bus, venue *exchange.Simulator, symbol string, prices []float64) {
	for _, px := range prices {
		venue.SetMark(symbol, px)
		bus.Publish(event.NewTrade(symbol, px, 100))
	}
}

// Prices [100, 99, 98, 100, 102] with fast=2 slow=3 initialize
// fast-below at 98 and cross to fast-above at 102.
func TestSMAGoldenCross(t *testing.T) {
	bus, pf, venue := newTestRig(t)

	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 2, Slow: 3, PositionSize: 100})
	sma.Start()

	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	feed(bus, venue, "AAPL", []float64{100, 99, 98, 100})
	assert.Equal(t, int64(0), pf.Ledger().PositionQty("AAPL"), "no cross yet")

	feed(bus, venue, "AAPL", []float64{102})
	assert.Equal(t, int64(100), pf.Ledger().PositionQty("AAPL"), "golden cross buys the full position")
}

func TestSMAInitializationTickNeverTrades(t *testing.T) {
	bus, pf, venue := newTestRig(t)
	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 2, Slow: 3, PositionSize: 100})
	sma.Start()
	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	// Third price fills the window and initializes FAST_ABOVE, but the
	// initialization itself is not a signal.
	feed(bus, venue, "AAPL", []float64{100, 101, 102})
	assert.Equal(t, int64(0), pf.Ledger().PositionQty("AAPL"))
}

func TestSMADeathCrossFlipsShort(t *testing.T) {
	bus, pf, venue := newTestRig(t)
	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 2, Slow: 3, PositionSize: 100})
	sma.Start()
	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	// Up-cross then down-cross: long 100, then sell 200 to -100.
	feed(bus, venue, "AAPL", []float64{100, 99, 98, 100, 102, 98, 94})
	assert.Equal(t, int64(-100), pf.Ledger().PositionQty("AAPL"))
}

func TestSMAIgnoresOtherSymbols(t *testing.T) {
	bus, pf, venue := newTestRig(t)
	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 2, Slow: 3, PositionSize: 100})
	sma.Start()
	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	feed(bus, venue, "TSLA", []float64{100, 99, 98, 100, 102})
	assert.Equal(t, 0, sma.PriceCount())
	assert.Equal(t, int64(0), pf.Ledger().PositionQty("AAPL"))
}

func TestSMAIgnoresEventsWhenStopped(t *testing.T) {
	bus, pf, venue := newTestRig(t)
	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 2, Slow: 3, PositionSize: 100})
	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	feed(bus, venue, "AAPL", []float64{100, 99, 98, 100, 102})
	assert.Equal(t, 0, sma.PriceCount(), "not started")
	assert.Equal(t, int64(0), pf.Ledger().PositionQty("AAPL"))
}

func TestSMAStartIsIdempotentAndResets(t *testing.T) {
	bus, pf, venue := newTestRig(t)
	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 2, Slow: 3, PositionSize: 100})
	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	sma.Start()
	feed(bus, venue, "AAPL", []float64{100, 99})
	sma.Start()
	assert.Equal(t, 2, sma.PriceCount(), "second Start does not reset a running strategy")

	sma.Stop()
	sma.Stop()
	sma.Start()
	assert.Equal(t, 0, sma.PriceCount(), "restart clears the window")
}

func TestSMAEqualAveragesKeepState(t *testing.T) {
	bus, pf, venue := newTestRig(t)
	sma := NewSMA("sma_test", pf, "AAPL", SMAConfig{Fast: 1, Slow: 2, PositionSize: 10})
	sma.Start()
	mgr := NewManager(bus)
	t.Cleanup(mgr.Close)
	mgr.Add(sma)

	// 100,90: fast=90 < slow=95 initializes FAST_BELOW. Then 90,90:
	// fast == slow keeps the state; no signal fires.
	feed(bus, venue, "AAPL", []float64{100, 90, 90})
	assert.Equal(t, int64(0), pf.Ledger().PositionQty("AAPL"))
}

// The emitted order sequence is a pure function of the inputs.
func TestSMADeterminism(t *testing.T) {
	series := []float64{100, 101, 99, 98, 100, 103, 101, 97, 95, 99, 104, 106}

	capture := func() []string {
		bus, pf, venue := newTestRig(t)
		var orders []string
		bus.Subscribe(event.Order, func(e event.Event) {
			if oe := e.(*event.OrderEvent); oe.Status == event.PendingNew {
				orders = append(orders, fmt.Sprintf("%s:%s:%d", oe.OrderID, oe.Side, oe.Qty))
			}
		})

		sma := NewSMA("sma_det", pf, "AAPL", SMAConfig{Fast: 3, Slow: 5, PositionSize: 50})
		sma.Start()
		mgr := NewManager(bus)
		t.Cleanup(mgr.Close)
		mgr.Add(sma)

		feed(bus, venue, "AAPL", series)
		return orders
	}

	first := capture()
	second := capture()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestBaseOrderIDs(t *testing.T) {
	b := NewBase("alpha", nil)
	assert.Equal(t, "alpha_1", b.NextOrderID())
	assert.Equal(t, "alpha_2", b.NextOrderID())
	assert.Equal(t, "alpha", b.Name())
}
