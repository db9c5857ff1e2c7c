package exchange

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulse/internal/event"
	"pulse/internal/logger"
)

// Config controls the simulated venue's behavior. Zero rates with
// InstantFills make the venue fully deterministic; backtests rely on
// that.
type Config struct {
	FillLatency     time.Duration
	RejectionRate   float64
	PartialFillRate float64
	SlippageBps     float64
	InstantFills    bool
}

// DeterministicConfig is the backtest configuration: inline fills, no
// rejections, no partials, no slippage.
func DeterministicConfig() Config {
	return Config{InstantFills: true}
}

type pendingOrder struct {
	id     string
	symbol string
	side   event.Side
	typ    event.OrderType
	price  float64
	qty    int64
}

// Simulator consumes PENDING_NEW and PENDING_CANCEL from the bus and
// produces the venue side of the order lifecycle: NEW, REJECTED,
// PARTIALLY_FILLED, FILLED, CANCELLED and FILL events.
//
// When latency is enabled, each accepted order gets one scheduled task
// that emits every fill segment; completions arriving after Stop are
// dropped at the venue boundary.
type Simulator struct {
	bus *event.Bus
	cfg Config

	mu      sync.Mutex
	running bool
	rng     *rand.Rand
	marks   map[string]float64
	pending map[string]pendingOrder
	sub     uint64
}

func NewSimulator(bus *event.Bus, cfg Config) *Simulator {
	return &Simulator{
		bus:     bus,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(entropySeed())),
		marks:   make(map[string]float64),
		pending: make(map[string]pendingOrder),
	}
}

func entropySeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Start subscribes the venue to ORDER events. Idempotent.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.sub = s.bus.Subscribe(event.Order, s.onOrderEvent)
}

// Stop unsubscribes and drops any late worker completions. Idempotent.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.bus.Unsubscribe(s.sub)
}

// Running reports whether the venue is accepting orders.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetMark records the last-known price for a symbol, the base for
// market-order slippage.
func (s *Simulator) SetMark(symbol string, price float64) {
	s.mu.Lock()
	s.marks[symbol] = price
	s.mu.Unlock()
}

// Config returns the venue configuration.
func (s *Simulator) Config() Config { return s.cfg }

func (s *Simulator) onOrderEvent(e event.Event) {
	oe, ok := e.(*event.OrderEvent)
	if !ok {
		return
	}
	switch oe.Status {
	case event.PendingNew:
		s.submit(pendingOrder{
			id:     oe.OrderID,
			symbol: oe.Symbol,
			side:   oe.Side,
			typ:    oe.OrderType,
			price:  oe.Price,
			qty:    oe.Qty,
		})
	case event.PendingCancel:
		s.cancel(oe.OrderID)
	}
}

func (s *Simulator) submit(po pendingOrder) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if s.cfg.RejectionRate > 0 && s.rng.Float64() < s.cfg.RejectionRate {
		s.mu.Unlock()
		s.bus.Publish(event.NewOrder(po.id, po.symbol, po.side, po.typ, event.Rejected, po.price, po.qty, 0, "simulated rejection"))
		return
	}
	s.pending[po.id] = po
	s.mu.Unlock()

	s.bus.Publish(event.NewOrder(po.id, po.symbol, po.side, po.typ, event.New, po.price, po.qty, 0, ""))

	if s.cfg.InstantFills {
		s.processFill(po)
		return
	}
	go func() {
		time.Sleep(s.cfg.FillLatency)
		if s.Running() {
			s.processFill(po)
		}
	}()
}

// cancel publishes the CANCELLED terminal for an order still pending at
// the venue. An id no longer in the pending map is silently ignored: the
// race with a just-processed fill is benign and the CANCELLED terminal
// is then never emitted for that order.
func (s *Simulator) cancel(orderID string) {
	s.mu.Lock()
	po, ok := s.pending[orderID]
	if ok {
		delete(s.pending, orderID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.bus.Publish(event.NewOrder(po.id, po.symbol, po.side, po.typ, event.Cancelled, po.price, po.qty, 0, ""))
}

// processFill emits every segment of the execution for one order. The
// order is claimed out of the pending map first, so a concurrent cancel
// either wins entirely or not at all.
func (s *Simulator) processFill(po pendingOrder) {
	s.mu.Lock()
	if _, ok := s.pending[po.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, po.id)

	fillPrice := po.price
	if po.typ == event.Market {
		fillPrice = s.slippedPriceLocked(po.symbol, po.side, po.price)
	}

	fillQty := po.qty
	partial := s.cfg.PartialFillRate > 0 && s.rng.Float64() < s.cfg.PartialFillRate
	if partial {
		fraction := 0.5 + 0.4*s.rng.Float64()
		fillQty = int64(math.Floor(float64(po.qty) * fraction))
		if fillQty < 1 {
			fillQty = 1
		}
	}
	s.mu.Unlock()

	s.bus.Publish(event.NewFill(po.id, po.symbol, po.side, fillPrice, fillQty, uuid.NewString()))

	if fillQty < po.qty {
		s.bus.Publish(event.NewOrder(po.id, po.symbol, po.side, po.typ, event.PartiallyFilled, po.price, po.qty, fillQty, ""))

		if !s.cfg.InstantFills {
			time.Sleep(s.cfg.FillLatency)
		}
		if s.Running() {
			s.bus.Publish(event.NewFill(po.id, po.symbol, po.side, fillPrice, po.qty-fillQty, uuid.NewString()))
		} else {
			logger.Debugf("exchange: dropping remainder fill for %s, venue stopped", po.id)
		}
	}

	s.bus.Publish(event.NewOrder(po.id, po.symbol, po.side, po.typ, event.Filled, po.price, po.qty, po.qty, ""))
}

// slippedPriceLocked moves the fill price against a market order: buys
// pay more, sells receive less. The base is the last mark, falling back
// to the order price when the symbol has never printed. Caller holds
// s.mu.
func (s *Simulator) slippedPriceLocked(symbol string, side event.Side, orderPrice float64) float64 {
	base := orderPrice
	if mark, ok := s.marks[symbol]; ok {
		base = mark
	}
	factor := s.cfg.SlippageBps / 10000
	if side == event.Buy {
		return base * (1 + factor)
	}
	return base * (1 - factor)
}
