package domain

import "time"

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the execution policy for an order. The arbitrage engine only
// ever places immediate-execution market orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus tracks an order's lifecycle on the venue.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// OrderCandidate is a fully specified order the engine intends to place:
// pair, side, quantized amount (base asset) and quantized reference price.
type OrderCandidate struct {
	Pair    Pair
	Side    OrderSide
	Type    OrderType
	IsMaker bool
	Amount  float64
	Price   float64
}

// Order is a venue-acknowledged order as tracked by a connector.
type Order struct {
	ID        string
	Pair      Pair
	Side      OrderSide
	Type      OrderType
	Amount    float64
	Price     float64
	Filled    float64
	Status    OrderStatus
	CreatedAt time.Time
}
