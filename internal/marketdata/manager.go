package marketdata

import (
	"sync"

	"pulse/internal/event"
)

// TopOfBook is the BBO view for one symbol.
type TopOfBook struct {
	Symbol   string
	BidPrice float64
	AskPrice float64
	BidSize  int64
	AskSize  int64
	Spread   float64
	Mid      float64
}

// BookManager maintains one order book per symbol from quote events.
// Purely observational; it never publishes.
type BookManager struct {
	bus *event.Bus

	mu    sync.Mutex
	books map[string]*OrderBook
	sub   uint64
}

func NewBookManager(bus *event.Bus) *BookManager {
	m := &BookManager{bus: bus, books: make(map[string]*OrderBook)}
	m.sub = bus.Subscribe(event.MarketData, m.onMarketData)
	return m
}

// Close detaches the manager from the bus.
func (m *BookManager) Close() {
	m.bus.Unsubscribe(m.sub)
}

func (m *BookManager) onMarketData(e event.Event) {
	q, ok := e.(*event.QuoteEvent)
	if !ok {
		return
	}
	m.mu.Lock()
	book := m.getOrCreateLocked(q.Symbol)
	book.UpdateBid(q.BidPrice, q.BidSize)
	book.UpdateAsk(q.AskPrice, q.AskSize)
	m.mu.Unlock()
}

func (m *BookManager) getOrCreateLocked(symbol string) *OrderBook {
	book, ok := m.books[symbol]
	if !ok {
		book = NewOrderBook(symbol)
		m.books[symbol] = book
	}
	return book
}

// Book returns the book for symbol, nil if none exists yet.
func (m *BookManager) Book(symbol string) *OrderBook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[symbol]
}

// HasBook reports whether a book exists for symbol.
func (m *BookManager) HasBook(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.books[symbol]
	return ok
}

// RemoveBook drops the book for symbol.
func (m *BookManager) RemoveBook(symbol string) {
	m.mu.Lock()
	delete(m.books, symbol)
	m.mu.Unlock()
}

// Clear drops every book.
func (m *BookManager) Clear() {
	m.mu.Lock()
	m.books = make(map[string]*OrderBook)
	m.mu.Unlock()
}

// Symbols lists tracked symbols.
func (m *BookManager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.books))
	for sym := range m.books {
		out = append(out, sym)
	}
	return out
}

// BookCount returns the number of tracked books.
func (m *BookManager) BookCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.books)
}

// TopOfBook returns the BBO for symbol.
func (m *BookManager) TopOfBook(symbol string) (TopOfBook, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[symbol]
	if !ok {
		return TopOfBook{}, false
	}
	return topLocked(book), true
}

// TopOfBooks returns the BBO of every tracked symbol.
func (m *BookManager) TopOfBooks() []TopOfBook {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TopOfBook, 0, len(m.books))
	for _, book := range m.books {
		out = append(out, topLocked(book))
	}
	return out
}

func topLocked(book *OrderBook) TopOfBook {
	top := TopOfBook{Symbol: book.Symbol(), Spread: book.Spread(), Mid: book.Mid()}
	if bid, ok := book.BestBid(); ok {
		top.BidPrice = bid.Price
		top.BidSize = bid.Qty
	}
	if ask, ok := book.BestAsk(); ok {
		top.AskPrice = ask.Price
		top.AskSize = ask.Qty
	}
	return top
}
