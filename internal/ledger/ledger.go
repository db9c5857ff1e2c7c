package ledger

import (
	"sync"

	"pulse/internal/event"
	"pulse/internal/logger"
)

// Ledger is the single source of truth for orders and per-symbol net
// positions. It subscribes to ORDER and FILL on the bus it is given and
// folds every transition and execution into its maps.
//
// The internal lock is released before any event is published so that
// downstream subscribers may call back into the ledger without deadlock.
type Ledger struct {
	bus *event.Bus

	mu        sync.Mutex
	orders    map[string]*Order
	positions map[string]*Position

	orderSub uint64
	fillSub  uint64
}

func New(bus *event.Bus) *Ledger {
	l := &Ledger{
		bus:       bus,
		orders:    make(map[string]*Order),
		positions: make(map[string]*Position),
	}
	l.orderSub = bus.Subscribe(event.Order, l.onOrderEvent)
	l.fillSub = bus.Subscribe(event.Fill, l.onFillEvent)
	return l
}

// Close detaches the ledger from the bus.
func (l *Ledger) Close() {
	l.bus.Unsubscribe(l.orderSub)
	l.bus.Unsubscribe(l.fillSub)
}

// SubmitOrder records the order in PENDING_NEW and publishes the
// matching ORDER event with the lock released. Order-id uniqueness is the
// caller's responsibility; a duplicate id overwrites silently.
func (l *Ledger) SubmitOrder(id, symbol string, side event.Side, typ event.OrderType, price float64, qty int64) {
	l.mu.Lock()
	l.orders[id] = newOrder(id, symbol, side, typ, price, qty)
	l.mu.Unlock()

	l.bus.Publish(event.NewOrder(id, symbol, side, typ, event.PendingNew, price, qty, 0, ""))
}

// CancelOrder publishes ORDER(PENDING_CANCEL) for an active order.
// Unknown or non-active orders are ignored.
func (l *Ledger) CancelOrder(id string) {
	l.mu.Lock()
	o, ok := l.orders[id]
	if !ok || !o.Active() {
		l.mu.Unlock()
		return
	}
	cancel := event.NewOrder(o.ID, o.Symbol, o.Side, o.OrderType, event.PendingCancel, o.LimitPrice, o.Qty, o.FilledQty, "")
	l.mu.Unlock()

	l.bus.Publish(cancel)
}

// Order returns a copy of the order by id.
func (l *Ledger) Order(id string) (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// ActiveOrders returns copies of every order still able to trade.
func (l *Ledger) ActiveOrders() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	var active []Order
	for _, o := range l.orders {
		if o.Active() {
			active = append(active, *o)
		}
	}
	return active
}

// ActiveOrdersFor returns active orders for one symbol.
func (l *Ledger) ActiveOrdersFor(symbol string) []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	var active []Order
	for _, o := range l.orders {
		if o.Active() && o.Symbol == symbol {
			active = append(active, *o)
		}
	}
	return active
}

// ActiveOrderCount returns the number of active orders.
func (l *Ledger) ActiveOrderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, o := range l.orders {
		if o.Active() {
			n++
		}
	}
	return n
}

// Position returns a copy of the position for symbol.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// PositionQty returns the signed net quantity for symbol, zero if flat
// or unknown.
func (l *Ledger) PositionQty(symbol string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.positions[symbol]; ok {
		return p.Qty
	}
	return 0
}

// Positions returns copies of every non-flat position.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Position
	for _, p := range l.positions {
		if !p.Flat() {
			out = append(out, *p)
		}
	}
	return out
}

// TotalRealizedPnL sums realized P&L across all positions, flat ones
// included.
func (l *Ledger) TotalRealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0.0
	for _, p := range l.positions {
		total += p.RealizedPnL
	}
	return total
}

// TotalUnrealizedPnL marks open positions against prices. Symbols with
// no mark are excluded.
func (l *Ledger) TotalUnrealizedPnL(prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0.0
	for sym, p := range l.positions {
		if px, ok := prices[sym]; ok {
			total += p.UnrealizedPnL(px)
		}
	}
	return total
}

// Clear drops all orders and positions. Tests only.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = make(map[string]*Order)
	l.positions = make(map[string]*Position)
}

// onOrderEvent folds a lifecycle transition into the order record. An
// unknown id inserts a new record: the ledger stays authoritative over
// venue-originated states it did not pre-register.
func (l *Ledger) onOrderEvent(e event.Event) {
	oe, ok := e.(*event.OrderEvent)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	o, found := l.orders[oe.OrderID]
	if !found {
		o = newOrder(oe.OrderID, oe.Symbol, oe.Side, oe.OrderType, oe.Price, oe.Qty)
		l.orders[oe.OrderID] = o
	}
	o.updateFromEvent(oe)
}

// onFillEvent applies the execution to the order and the position. A
// fill for an unknown order creates a phantom record sized to the fill
// rather than crashing.
func (l *Ledger) onFillEvent(e event.Event) {
	fe, ok := e.(*event.FillEvent)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	o, found := l.orders[fe.OrderID]
	if !found {
		logger.Warnf("ledger: fill for unknown order %s, creating phantom", fe.OrderID)
		o = newOrder(fe.OrderID, fe.Symbol, fe.Side, event.Market, fe.FillPrice, fe.FillQty)
		l.orders[fe.OrderID] = o
	}
	o.applyFill(fe.FillQty, fe.FillPrice)

	p, ok := l.positions[fe.Symbol]
	if !ok {
		p = newPosition(fe.Symbol)
		l.positions[fe.Symbol] = p
	}
	p.applyFill(fe.Side, fe.FillQty, fe.FillPrice)
}
