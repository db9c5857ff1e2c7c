package event

import "time"

// Type tags the event variants dispatched over the bus. Quote and Trade
// share the MarketData tag; subscribers discriminate by concrete type.
type Type int

const (
	MarketData Type = iota
	Order
	Fill
	Timer
	System
)

func (t Type) String() string {
	switch t {
	case MarketData:
		return "MARKET_DATA"
	case Order:
		return "ORDER"
	case Fill:
		return "FILL"
	case Timer:
		return "TIMER"
	case System:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Event is the unit passed through the bus. The timestamp is set at
// construction and never mutated; it exists only for age measurement.
type Event interface {
	Type() Type
	Timestamp() time.Time
	Age() time.Duration
}

type stamp struct {
	ts time.Time
}

func newStamp() stamp {
	return stamp{ts: time.Now()}
}

func (s stamp) Timestamp() time.Time { return s.ts }
func (s stamp) Age() time.Duration   { return time.Since(s.ts) }

// Side of an order or fill.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Sign returns +1 for Buy and -1 for Sell.
func (s Side) Sign() int64 {
	if s == Sell {
		return -1
	}
	return 1
}

// OrderType carries the order instruction. Only Market changes core
// behavior (slippage); the rest pass through unchanged.
type OrderType int

const (
	Market OrderType = iota
	Limit
	Stop
	StopLimit
	IOC
	FOK
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	case StopLimit:
		return "STOP_LIMIT"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus is the order lifecycle state.
type OrderStatus int

const (
	PendingNew OrderStatus = iota
	New
	PartiallyFilled
	Filled
	PendingCancel
	Cancelled
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case PendingNew:
		return "PENDING_NEW"
	case New:
		return "NEW"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case PendingCancel:
		return "PENDING_CANCEL"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether the order can still trade or be cancelled.
func (s OrderStatus) Active() bool {
	return s == New || s == PartiallyFilled || s == PendingNew
}

// Terminal reports whether the status absorbs all further transitions.
func (s OrderStatus) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// QuoteEvent is a top-of-book update.
type QuoteEvent struct {
	stamp
	Symbol   string
	BidPrice float64
	AskPrice float64
	BidSize  int64
	AskSize  int64
}

func NewQuote(symbol string, bidPx, askPx float64, bidSz, askSz int64) *QuoteEvent {
	return &QuoteEvent{stamp: newStamp(), Symbol: symbol, BidPrice: bidPx, AskPrice: askPx, BidSize: bidSz, AskSize: askSz}
}

func (*QuoteEvent) Type() Type { return MarketData }

func (q *QuoteEvent) Spread() float64 { return q.AskPrice - q.BidPrice }
func (q *QuoteEvent) Mid() float64    { return (q.BidPrice + q.AskPrice) / 2 }

// TradeEvent is a last-sale print.
type TradeEvent struct {
	stamp
	Symbol string
	Price  float64
	Size   int64
}

func NewTrade(symbol string, price float64, size int64) *TradeEvent {
	return &TradeEvent{stamp: newStamp(), Symbol: symbol, Price: price, Size: size}
}

func (*TradeEvent) Type() Type { return MarketData }

// OrderEvent reports an order lifecycle transition.
type OrderEvent struct {
	stamp
	OrderID      string
	Symbol       string
	Side         Side
	OrderType    OrderType
	Status       OrderStatus
	Price        float64
	Qty          int64
	FilledQty    int64
	RejectReason string
}

func NewOrder(orderID, symbol string, side Side, typ OrderType, status OrderStatus, price float64, qty, filledQty int64, rejectReason string) *OrderEvent {
	return &OrderEvent{
		stamp:        newStamp(),
		OrderID:      orderID,
		Symbol:       symbol,
		Side:         side,
		OrderType:    typ,
		Status:       status,
		Price:        price,
		Qty:          qty,
		FilledQty:    filledQty,
		RejectReason: rejectReason,
	}
}

func (*OrderEvent) Type() Type { return Order }

func (o *OrderEvent) RemainingQty() int64 { return o.Qty - o.FilledQty }

// FillEvent reports an execution.
type FillEvent struct {
	stamp
	OrderID     string
	Symbol      string
	Side        Side
	FillPrice   float64
	FillQty     int64
	ExecutionID string
}

func NewFill(orderID, symbol string, side Side, fillPrice float64, fillQty int64, executionID string) *FillEvent {
	return &FillEvent{
		stamp:       newStamp(),
		OrderID:     orderID,
		Symbol:      symbol,
		Side:        side,
		FillPrice:   fillPrice,
		FillQty:     fillQty,
		ExecutionID: executionID,
	}
}

func (*FillEvent) Type() Type { return Fill }

// TimerEvent is a named tick from the scheduler. It carries no callback;
// control flow stays with the scheduler that produced it.
type TimerEvent struct {
	stamp
	Name string
}

func NewTimer(name string) *TimerEvent {
	return &TimerEvent{stamp: newStamp(), Name: name}
}

func (*TimerEvent) Type() Type { return Timer }

// SystemType enumerates control and status messages.
type SystemType int

const (
	Startup SystemType = iota
	Shutdown
	TradingStart
	TradingStop
	EmergencyStop
	ConfigReload
	HealthCheck
	ConnectionUp
	ConnectionDown
)

func (t SystemType) String() string {
	switch t {
	case Startup:
		return "STARTUP"
	case Shutdown:
		return "SHUTDOWN"
	case TradingStart:
		return "TRADING_START"
	case TradingStop:
		return "TRADING_STOP"
	case EmergencyStop:
		return "EMERGENCY_STOP"
	case ConfigReload:
		return "CONFIG_RELOAD"
	case HealthCheck:
		return "HEALTH_CHECK"
	case ConnectionUp:
		return "CONNECTION_UP"
	case ConnectionDown:
		return "CONNECTION_DOWN"
	default:
		return "UNKNOWN"
	}
}

// SystemEvent is a control/status message.
type SystemEvent struct {
	stamp
	SystemType SystemType
	Message    string
}

func NewSystem(systemType SystemType, message string) *SystemEvent {
	return &SystemEvent{stamp: newStamp(), SystemType: systemType, Message: message}
}

func (*SystemEvent) Type() Type { return System }
