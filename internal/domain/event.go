package domain

import "time"

// OrderEventType tags the asynchronous order notifications a connector emits.
type OrderEventType string

const (
	// OrderEventCreated: the venue acknowledged the order. Informational.
	OrderEventCreated OrderEventType = "created"
	// OrderEventFilled: a (partial) fill occurred. Informational; never
	// drives an engine transition on its own.
	OrderEventFilled OrderEventType = "filled"
	// OrderEventCompleted: the order is fully done; the engine advances to
	// the next leg.
	OrderEventCompleted OrderEventType = "completed"
	// OrderEventFailed: the venue rejected or failed the order; the engine
	// aborts the in-flight cycle.
	OrderEventFailed OrderEventType = "failed"
)

// OrderEvent is the tagged union carried on a connector's event stream. Events
// for the same order id are delivered in order.
type OrderEvent struct {
	Type      OrderEventType
	OrderID   string
	Pair      Pair
	Side      OrderSide
	Price     float64
	Amount    float64
	Reason    string // failure reason, when Type is OrderEventFailed
	Timestamp time.Time
}
