package strategy

import (
	"sync"

	"pulse/internal/event"
)

// Manager routes bus events to every running strategy. It subscribes
// once to MARKET_DATA, ORDER and FILL; market data is discriminated by
// concrete variant (quote vs trade), never by symbol.
//
// Dispatch copies the registry under the lock and fans out with the lock
// released, so handlers may call Add/Remove. A strategy added during
// dispatch is not invoked for the in-flight event.
type Manager struct {
	bus *event.Bus

	mu         sync.Mutex
	strategies []Strategy

	mdSub    uint64
	orderSub uint64
	fillSub  uint64
}

func NewManager(bus *event.Bus) *Manager {
	m := &Manager{bus: bus}
	m.mdSub = bus.Subscribe(event.MarketData, m.onMarketData)
	m.orderSub = bus.Subscribe(event.Order, m.onOrder)
	m.fillSub = bus.Subscribe(event.Fill, m.onFill)
	return m
}

// Close detaches the manager from the bus.
func (m *Manager) Close() {
	m.bus.Unsubscribe(m.mdSub)
	m.bus.Unsubscribe(m.orderSub)
	m.bus.Unsubscribe(m.fillSub)
}

// Add registers a strategy at the end of the fan-out order.
func (m *Manager) Add(s Strategy) {
	m.mu.Lock()
	m.strategies = append(m.strategies, s)
	m.mu.Unlock()
}

// Remove stops and unregisters a strategy by name.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	var removed Strategy
	for i, s := range m.strategies {
		if s.Name() == name {
			removed = s
			m.strategies = append(m.strategies[:i:i], m.strategies[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if removed == nil {
		return false
	}
	removed.Stop()
	return true
}

// Get returns the strategy registered under name.
func (m *Manager) Get(name string) (Strategy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.strategies {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// All returns the registry in registration order.
func (m *Manager) All() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Strategy(nil), m.strategies...)
}

// Count returns the number of registered strategies.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.strategies)
}

// StartAll starts every registered strategy.
func (m *Manager) StartAll() {
	for _, s := range m.All() {
		s.Start()
	}
}

// StopAll stops every registered strategy.
func (m *Manager) StopAll() {
	for _, s := range m.All() {
		s.Stop()
	}
}

func (m *Manager) onMarketData(e event.Event) {
	switch md := e.(type) {
	case *event.TradeEvent:
		for _, s := range m.All() {
			if s.Running() {
				s.HandleTrade(md)
			}
		}
	case *event.QuoteEvent:
		for _, s := range m.All() {
			if s.Running() {
				s.HandleQuote(md)
			}
		}
	}
}

func (m *Manager) onOrder(e event.Event) {
	oe, ok := e.(*event.OrderEvent)
	if !ok {
		return
	}
	for _, s := range m.All() {
		if s.Running() {
			s.HandleOrder(oe)
		}
	}
}

func (m *Manager) onFill(e event.Event) {
	fe, ok := e.(*event.FillEvent)
	if !ok {
		return
	}
	for _, s := range m.All() {
		if s.Running() {
			s.HandleFill(fe)
		}
	}
}
