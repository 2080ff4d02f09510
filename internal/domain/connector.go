package domain

import "context"

// BookSource provides current order-book snapshots for a pair.
type BookSource interface {
	OrderBook(pair Pair) (OrderbookSnapshot, error)
}

// Quantizer rounds amounts and prices to a pair's precision rules. Amounts
// below the minimum tradable size quantize to zero.
type Quantizer interface {
	QuantizeAmount(pair Pair, amount float64) float64
	QuantizePrice(pair Pair, price float64) float64
}

// Connector is the exchange-facing collaborator the arbitrage core drives.
// Implementations own market connectivity: books, balances, fill simulation,
// order submission and the asynchronous order event stream.
type Connector interface {
	BookSource
	Quantizer

	// Name identifies the venue (e.g. "binance", "paper").
	Name() string

	// EstimateExecutionPrice returns the expected average fill price for a
	// market order of the given base amount against current depth.
	EstimateExecutionPrice(pair Pair, side OrderSide, amount float64) (float64, error)

	// SimulateExecutionVolume returns the quote volume obtained (SELL) or
	// spent (BUY) when filling the given base amount against current depth.
	SimulateExecutionVolume(pair Pair, side OrderSide, amount float64) (float64, error)

	// AvailableBalance returns the free balance of an asset.
	AvailableBalance(asset string) (float64, error)

	// AdjustCandidateAllOrNone applies the venue budget check: the returned
	// candidate carries either the full requested amount or a zero amount,
	// never a partial adjustment.
	AdjustCandidateAllOrNone(c OrderCandidate) OrderCandidate

	// SubmitOrder places an order and returns its id immediately. Creation,
	// fill, completion and failure notifications follow on Events.
	SubmitOrder(ctx context.Context, c OrderCandidate) (string, error)

	// CancelOrder requests cancellation of an outstanding order.
	CancelOrder(ctx context.Context, orderID string) error

	// EstimateFee returns the fee rate as a fraction of the traded volume
	// (e.g. 0.001 for 10 bps).
	EstimateFee(isMaker bool) float64

	// Events is the inbound stream of order notifications, ordered per
	// order id.
	Events() <-chan OrderEvent
}
