package marketdata

import "sort"

// PriceLevel is one aggregated price level of a book side.
type PriceLevel struct {
	Price float64
	Qty   int64
}

// OrderBook holds aggregated bid/ask levels for a single symbol. It is
// an observability surface: nothing in the trading path reads it.
// Bids sort descending, asks ascending, so index 0 is always best.
type OrderBook struct {
	symbol string
	bids   []PriceLevel
	asks   []PriceLevel
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{symbol: symbol}
}

func (b *OrderBook) Symbol() string { return b.symbol }

// UpdateBid sets the quantity at a bid price level; zero or negative
// quantity removes the level.
func (b *OrderBook) UpdateBid(price float64, qty int64) {
	b.bids = updateLevel(b.bids, price, qty, func(a, c float64) bool { return a > c })
}

// UpdateAsk sets the quantity at an ask price level; zero or negative
// quantity removes the level.
func (b *OrderBook) UpdateAsk(price float64, qty int64) {
	b.asks = updateLevel(b.asks, price, qty, func(a, c float64) bool { return a < c })
}

func (b *OrderBook) RemoveBid(price float64) { b.UpdateBid(price, 0) }
func (b *OrderBook) RemoveAsk(price float64) { b.UpdateAsk(price, 0) }

func (b *OrderBook) Clear() {
	b.bids = nil
	b.asks = nil
}

// BestBid returns the top bid level.
func (b *OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.bids) == 0 {
		return PriceLevel{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the top ask level.
func (b *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.asks) == 0 {
		return PriceLevel{}, false
	}
	return b.asks[0], true
}

// Spread is best ask minus best bid, 0 when either side is empty.
func (b *OrderBook) Spread() float64 {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0
	}
	return ask.Price - bid.Price
}

// Mid is the midpoint of the BBO, 0 when either side is empty.
func (b *OrderBook) Mid() float64 {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0
	}
	return (bid.Price + ask.Price) / 2
}

// BidDepth returns up to levels bid levels, best first.
func (b *OrderBook) BidDepth(levels int) []PriceLevel {
	return depth(b.bids, levels)
}

// AskDepth returns up to levels ask levels, best first.
func (b *OrderBook) AskDepth(levels int) []PriceLevel {
	return depth(b.asks, levels)
}

func (b *OrderBook) BidLevelCount() int { return len(b.bids) }
func (b *OrderBook) AskLevelCount() int { return len(b.asks) }
func (b *OrderBook) Empty() bool        { return len(b.bids) == 0 && len(b.asks) == 0 }

func depth(side []PriceLevel, levels int) []PriceLevel {
	if levels <= 0 || levels > len(side) {
		levels = len(side)
	}
	return append([]PriceLevel(nil), side[:levels]...)
}

// updateLevel keeps the side sorted by better(a, b): replace in place,
// remove on qty<=0, or insert at the sorted position.
func updateLevel(side []PriceLevel, price float64, qty int64, better func(a, b float64) bool) []PriceLevel {
	idx := sort.Search(len(side), func(i int) bool {
		return !better(side[i].Price, price)
	})
	if idx < len(side) && side[idx].Price == price {
		if qty <= 0 {
			return append(side[:idx:idx], side[idx+1:]...)
		}
		side[idx].Qty = qty
		return side
	}
	if qty <= 0 {
		return side
	}
	side = append(side, PriceLevel{})
	copy(side[idx+1:], side[idx:])
	side[idx] = PriceLevel{Price: price, Qty: qty}
	return side
}
