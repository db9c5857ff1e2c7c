package portfolio

import (
	"math"
	"sync"

	"pulse/internal/event"
	"pulse/internal/ledger"
	"pulse/internal/logger"
)

// Config carries the capital and risk limits.
type Config struct {
	InitialCapital      float64
	MaxPositionNotional float64
	MaxGrossExposure    float64
}

// Portfolio wraps the order ledger with cash tracking and a pre-trade
// risk gate. It owns its ledger exclusively; strategies hold a shared,
// non-owning reference to the portfolio.
//
// Construction order matters: the ledger subscribes to FILL before the
// portfolio does, so on every fill the position is updated before cash.
type Portfolio struct {
	bus    *event.Bus
	ledger *ledger.Ledger

	mu                  sync.Mutex
	initialCapital      float64
	cash                float64
	maxPositionNotional float64
	maxGrossExposure    float64

	fillSub uint64
}

func New(bus *event.Bus, cfg Config) *Portfolio {
	p := &Portfolio{
		bus:                 bus,
		ledger:              ledger.New(bus),
		initialCapital:      cfg.InitialCapital,
		cash:                cfg.InitialCapital,
		maxPositionNotional: cfg.MaxPositionNotional,
		maxGrossExposure:    cfg.MaxGrossExposure,
	}
	p.fillSub = bus.Subscribe(event.Fill, p.onFillEvent)
	return p
}

// Close detaches the portfolio and its ledger from the bus.
func (p *Portfolio) Close() {
	p.bus.Unsubscribe(p.fillSub)
	p.ledger.Close()
}

// Ledger exposes the underlying order and position ledger.
func (p *Portfolio) Ledger() *ledger.Ledger { return p.ledger }

// SubmitOrder runs the pre-trade gate and, on pass, forwards to the
// ledger (which publishes PENDING_NEW). Returns the admission result; a
// rejected submission raises no event.
//
// The gate runs under one mutex so the check is atomic with the
// observation of current positions: two orders that individually pass
// cannot jointly exceed a cap.
func (p *Portfolio) SubmitOrder(id, symbol string, side event.Side, typ event.OrderType, price float64, qty int64, prices map[string]float64) bool {
	p.mu.Lock()
	ok := p.preTradeCheck(symbol, side, price, qty, prices)
	p.mu.Unlock()
	if !ok {
		return false
	}

	p.ledger.SubmitOrder(id, symbol, side, typ, price, qty)
	return true
}

// CancelOrder forwards to the ledger.
func (p *Portfolio) CancelOrder(id string) {
	p.ledger.CancelOrder(id)
}

// preTradeCheck evaluates the admission gates in order, fail-closed.
// Caller holds p.mu.
func (p *Portfolio) preTradeCheck(symbol string, side event.Side, price float64, qty int64, prices map[string]float64) bool {
	orderValue := price * float64(qty)

	if side == event.Buy && orderValue > p.cash {
		logger.Debugf("portfolio: reject %s %s: order value %.2f exceeds cash %.2f", side, symbol, orderValue, p.cash)
		return false
	}

	currentQty := p.ledger.PositionQty(symbol)
	projectedQty := currentQty + side.Sign()*qty
	projectedNotional := math.Abs(float64(projectedQty) * price)

	if projectedNotional > p.maxPositionNotional {
		logger.Debugf("portfolio: reject %s %s: projected notional %.2f exceeds cap %.2f", side, symbol, projectedNotional, p.maxPositionNotional)
		return false
	}

	exposure := 0.0
	for _, pos := range p.ledger.Positions() {
		if pos.Symbol == symbol {
			continue
		}
		if px, ok := prices[pos.Symbol]; ok {
			exposure += math.Abs(float64(pos.Qty) * px)
		}
	}
	if exposure+projectedNotional > p.maxGrossExposure {
		logger.Debugf("portfolio: reject %s %s: gross exposure %.2f exceeds cap %.2f", side, symbol, exposure+projectedNotional, p.maxGrossExposure)
		return false
	}

	return true
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// InitialCapital returns the starting capital.
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// Value is cash plus unrealized P&L under the given marks.
func (p *Portfolio) Value(prices map[string]float64) float64 {
	p.mu.Lock()
	cash := p.cash
	p.mu.Unlock()
	return cash + p.ledger.TotalUnrealizedPnL(prices)
}

// RealizedPnL sums realized P&L across positions.
func (p *Portfolio) RealizedPnL() float64 {
	return p.ledger.TotalRealizedPnL()
}

// UnrealizedPnL marks open positions against prices.
func (p *Portfolio) UnrealizedPnL(prices map[string]float64) float64 {
	return p.ledger.TotalUnrealizedPnL(prices)
}

// TotalPnL is realized plus unrealized.
func (p *Portfolio) TotalPnL(prices map[string]float64) float64 {
	return p.RealizedPnL() + p.UnrealizedPnL(prices)
}

// GrossExposure sums absolute position values under prices. Symbols
// without a mark are excluded.
func (p *Portfolio) GrossExposure(prices map[string]float64) float64 {
	exposure := 0.0
	for _, pos := range p.ledger.Positions() {
		if px, ok := prices[pos.Symbol]; ok {
			exposure += math.Abs(float64(pos.Qty) * px)
		}
	}
	return exposure
}

// NetExposure sums signed position values under prices.
func (p *Portfolio) NetExposure(prices map[string]float64) float64 {
	exposure := 0.0
	for _, pos := range p.ledger.Positions() {
		if px, ok := prices[pos.Symbol]; ok {
			exposure += float64(pos.Qty) * px
		}
	}
	return exposure
}

// SetMaxPositionNotional adjusts the per-symbol notional cap.
func (p *Portfolio) SetMaxPositionNotional(v float64) {
	p.mu.Lock()
	p.maxPositionNotional = v
	p.mu.Unlock()
}

// SetMaxGrossExposure adjusts the gross exposure cap.
func (p *Portfolio) SetMaxGrossExposure(v float64) {
	p.mu.Lock()
	p.maxGrossExposure = v
	p.mu.Unlock()
}

// MaxPositionNotional returns the per-symbol notional cap.
func (p *Portfolio) MaxPositionNotional() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxPositionNotional
}

// MaxGrossExposure returns the gross exposure cap.
func (p *Portfolio) MaxGrossExposure() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxGrossExposure
}

// Clear resets cash to the initial capital and clears the ledger. Tests
// only.
func (p *Portfolio) Clear() {
	p.mu.Lock()
	p.cash = p.initialCapital
	p.mu.Unlock()
	p.ledger.Clear()
}

// onFillEvent debits cash on buys and credits it on sells. Realized P&L
// shows up as the net cash change once a position flattens.
func (p *Portfolio) onFillEvent(e event.Event) {
	fe, ok := e.(*event.FillEvent)
	if !ok {
		return
	}
	value := fe.FillPrice * float64(fe.FillQty)

	p.mu.Lock()
	if fe.Side == event.Buy {
		p.cash -= value
	} else {
		p.cash += value
	}
	p.mu.Unlock()
}
