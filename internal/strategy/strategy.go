package strategy

import (
	"fmt"
	"sync/atomic"

	"pulse/internal/event"
	"pulse/internal/portfolio"
)

// Strategy is the contract the manager drives. Implementations must
// ignore events before Start and after Stop (the manager also gates on
// Running), route every order through the portfolio so risk is enforced,
// and generate order ids of the form "{name}_{counter}".
type Strategy interface {
	Name() string
	Running() bool
	Start()
	Stop()
	HandleTrade(*event.TradeEvent)
	HandleQuote(*event.QuoteEvent)
	HandleOrder(*event.OrderEvent)
	HandleFill(*event.FillEvent)
}

// Base carries the common strategy state: name, running flag, a shared
// non-owning portfolio reference, and the order-id counter. Concrete
// strategies embed it and shadow the handlers they care about.
type Base struct {
	name string
	pf   *portfolio.Portfolio

	running  atomic.Bool
	orderSeq atomic.Uint64
}

func NewBase(name string, pf *portfolio.Portfolio) Base {
	return Base{name: name, pf: pf}
}

func (b *Base) Name() string                    { return b.name }
func (b *Base) Running() bool                   { return b.running.Load() }
func (b *Base) Portfolio() *portfolio.Portfolio { return b.pf }

// Start is idempotent; it reports nothing. Strategies with warm-up state
// shadow Start and use transitionStart to detect the first call.
func (b *Base) Start() { b.running.CompareAndSwap(false, true) }

// Stop is idempotent.
func (b *Base) Stop() { b.running.CompareAndSwap(true, false) }

// transitionStart flips the running flag and reports whether this call
// performed the transition.
func (b *Base) transitionStart() bool { return b.running.CompareAndSwap(false, true) }

// NextOrderID returns "{name}_{monotonic counter}".
func (b *Base) NextOrderID() string {
	return fmt.Sprintf("%s_%d", b.name, b.orderSeq.Add(1))
}

// Submit routes an order through the portfolio's risk gate. A false
// return is an admission failure; treat it as a no-op and retry on a
// later tick if desired.
func (b *Base) Submit(symbol string, side event.Side, typ event.OrderType, price float64, qty int64, prices map[string]float64) bool {
	return b.pf.SubmitOrder(b.NextOrderID(), symbol, side, typ, price, qty, prices)
}

// Cancel requests cancellation of an order previously submitted.
func (b *Base) Cancel(orderID string) { b.pf.CancelOrder(orderID) }

// Default no-op handlers.
func (b *Base) HandleTrade(*event.TradeEvent) {}
func (b *Base) HandleQuote(*event.QuoteEvent) {}
func (b *Base) HandleOrder(*event.OrderEvent) {}
func (b *Base) HandleFill(*event.FillEvent)   {}
