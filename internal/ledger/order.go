package ledger

import (
	"time"

	"pulse/internal/event"
)

// Order tracks a single order through its lifecycle. Identity is the
// order id, unique per process; a duplicate submit overwrites silently.
type Order struct {
	ID           string
	Symbol       string
	Side         event.Side
	OrderType    event.OrderType
	Status       event.OrderStatus
	LimitPrice   float64
	Qty          int64
	FilledQty    int64
	AvgFillPrice float64
	RejectReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func newOrder(id, symbol string, side event.Side, typ event.OrderType, price float64, qty int64) *Order {
	now := time.Now()
	return &Order{
		ID:         id,
		Symbol:     symbol,
		Side:       side,
		OrderType:  typ,
		Status:     event.PendingNew,
		LimitPrice: price,
		Qty:        qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (o *Order) RemainingQty() int64 { return o.Qty - o.FilledQty }

func (o *Order) Active() bool   { return o.Status.Active() }
func (o *Order) Terminal() bool { return o.Status.Terminal() }

// updateFromEvent applies a lifecycle transition reported on the bus.
func (o *Order) updateFromEvent(e *event.OrderEvent) {
	o.Status = e.Status
	o.FilledQty = e.FilledQty
	if e.RejectReason != "" {
		o.RejectReason = e.RejectReason
	}
	o.UpdatedAt = time.Now()
}

// applyFill folds an execution into the order: filled quantity grows, the
// average fill price is the fill-weighted mean, and status recomputes to
// FILLED when filled >= qty, else PARTIALLY_FILLED.
func (o *Order) applyFill(fillQty int64, fillPrice float64) {
	previous := o.FilledQty
	o.FilledQty += fillQty
	if previous == 0 {
		o.AvgFillPrice = fillPrice
	} else {
		o.AvgFillPrice = (o.AvgFillPrice*float64(previous) + fillPrice*float64(fillQty)) / float64(o.FilledQty)
	}
	if o.FilledQty >= o.Qty {
		o.Status = event.Filled
	} else if o.FilledQty > 0 {
		o.Status = event.PartiallyFilled
	}
	o.UpdatedAt = time.Now()
}
