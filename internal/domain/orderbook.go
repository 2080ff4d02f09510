package domain

import "time"

// PriceLevel is a single price+amount rung in an orderbook. Amount is
// denominated in the pair's base asset.
type PriceLevel struct {
	Price  float64
	Amount float64
}

// Value returns the quote-asset value of the full level.
func (l PriceLevel) Value() float64 {
	return l.Price * l.Amount
}

// OrderbookSnapshot is a full snapshot of bids and asks for a pair. Bids are
// sorted best (highest) first, asks best (lowest) first, so consumers can walk
// either side in execution-priority order.
type OrderbookSnapshot struct {
	Pair      Pair
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	MidPrice  float64
	Timestamp time.Time
}
