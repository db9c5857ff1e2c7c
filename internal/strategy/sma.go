package strategy

import (
	"sync"

	"github.com/markcheno/go-talib"

	"pulse/internal/event"
	"pulse/internal/logger"
	"pulse/internal/portfolio"
)

type crossState int

const (
	crossNone crossState = iota
	crossFastAbove
	crossFastBelow
)

// SMAConfig parameterizes the crossover. Fast must be smaller than Slow.
type SMAConfig struct {
	Fast         int
	Slow         int
	PositionSize int64
}

// SMA is the moving-average crossover reference strategy.
//
// It keeps a trailing window of at most Slow trade prices for its symbol.
// Once the window is full, the fast/slow relation defines a cross state
// under strict inequality; equal averages keep the previous state. A
// signal fires only on a change from an initialized state: the tick that
// first fills the window initializes and never trades.
type SMA struct {
	Base
	symbol string
	cfg    SMAConfig

	mu     sync.Mutex
	window []float64
	prev   crossState
}

func NewSMA(name string, pf *portfolio.Portfolio, symbol string, cfg SMAConfig) *SMA {
	return &SMA{
		Base:   NewBase(name, pf),
		symbol: symbol,
		cfg:    cfg,
	}
}

func (s *SMA) Symbol() string { return s.symbol }

// FastSMA returns the fast average, or 0 while the window is short.
func (s *SMA) FastSMA() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastSMA(s.window, s.cfg.Fast)
}

// SlowSMA returns the slow average, or 0 while the window is short.
func (s *SMA) SlowSMA() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastSMA(s.window, s.cfg.Slow)
}

// PriceCount returns the number of prices currently windowed.
func (s *SMA) PriceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.window)
}

func (s *SMA) Start() {
	if !s.transitionStart() {
		return
	}
	s.mu.Lock()
	s.window = s.window[:0]
	s.prev = crossNone
	s.mu.Unlock()
}

func (s *SMA) HandleTrade(t *event.TradeEvent) {
	if !s.Running() || t.Symbol != s.symbol {
		return
	}

	s.mu.Lock()
	s.window = append(s.window, t.Price)
	if len(s.window) > s.cfg.Slow {
		s.window = s.window[1:]
	}
	if len(s.window) < s.cfg.Slow {
		s.mu.Unlock()
		return
	}

	fast := lastSMA(s.window, s.cfg.Fast)
	slow := lastSMA(s.window, s.cfg.Slow)

	current := s.prev
	switch {
	case fast > slow:
		current = crossFastAbove
	case fast < slow:
		current = crossFastBelow
	}

	signal := s.prev != crossNone && current != s.prev
	s.prev = current
	s.mu.Unlock()

	if !signal {
		return
	}

	currentQty := s.Portfolio().Ledger().PositionQty(s.symbol)
	marks := map[string]float64{s.symbol: t.Price}

	switch {
	case current == crossFastAbove && currentQty <= 0:
		orderQty := s.cfg.PositionSize - currentQty
		if !s.Submit(s.symbol, event.Buy, event.Market, t.Price, orderQty, marks) {
			logger.Warnf("%s: golden cross buy of %d %s rejected by risk gate", s.Name(), orderQty, s.symbol)
		}
	case current == crossFastBelow && currentQty >= 0:
		orderQty := abs64(-s.cfg.PositionSize - currentQty)
		if !s.Submit(s.symbol, event.Sell, event.Market, t.Price, orderQty, marks) {
			logger.Warnf("%s: death cross sell of %d %s rejected by risk gate", s.Name(), orderQty, s.symbol)
		}
	}
}

// lastSMA is the mean of the trailing period prices, 0 if the window is
// shorter than period.
func lastSMA(window []float64, period int) float64 {
	if period <= 0 || len(window) < period {
		return 0
	}
	if period == 1 {
		return window[len(window)-1]
	}
	out := talib.Sma(window, period)
	return out[len(out)-1]
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
