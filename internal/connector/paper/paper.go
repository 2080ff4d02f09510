// Package paper implements domain.Connector as a simulated venue: order books
// are fed in from a market-data stream, balances live in memory, and market
// orders fill against current depth with the venue's asynchronous
// created/filled/completed/failed notification sequence.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantverse/triarb/internal/domain"
)

// PrecisionRule is a pair's quantization rule. Amounts and prices are floored
// to their step; amounts below MinAmount quantize to zero.
type PrecisionRule struct {
	AmountStep float64
	PriceStep  float64
	MinAmount  float64
}

// defaultPrecision applies when a pair has no configured rule.
var defaultPrecision = PrecisionRule{AmountStep: 1e-8, PriceStep: 1e-8}

// Config seeds the simulated venue.
type Config struct {
	TakerFeeRate float64 // fraction of traded volume
	MakerFeeRate float64
	Balances     map[string]float64
	Precision    map[string]PrecisionRule // keyed by BASE-QUOTE
}

// Connector is the paper venue. All state is guarded by one mutex; the event
// channel is emitted to from per-order goroutines so notifications for one
// order always arrive in venue order.
type Connector struct {
	takerFee float64
	makerFee float64
	prec     map[string]PrecisionRule
	logger   *slog.Logger

	mu       sync.Mutex
	books    map[string]domain.OrderbookSnapshot
	balances map[string]float64
	orders   map[string]domain.Order
	closed   bool

	events chan domain.OrderEvent
}

// New creates a paper Connector with the given starting balances and
// precision rules.
func New(cfg Config, logger *slog.Logger) *Connector {
	balances := make(map[string]float64, len(cfg.Balances))
	for asset, bal := range cfg.Balances {
		balances[asset] = bal
	}
	prec := make(map[string]PrecisionRule, len(cfg.Precision))
	for pair, rule := range cfg.Precision {
		prec[pair] = rule
	}
	return &Connector{
		takerFee: cfg.TakerFeeRate,
		makerFee: cfg.MakerFeeRate,
		prec:     prec,
		logger:   logger.With(slog.String("component", "paper_connector")),
		books:    make(map[string]domain.OrderbookSnapshot),
		balances: balances,
		orders:   make(map[string]domain.Order),
		events:   make(chan domain.OrderEvent, 64),
	}
}

// Name identifies the venue.
func (c *Connector) Name() string { return "paper" }

// ApplyBook replaces the order book for a pair. Best bid/ask and mid are
// derived when the snapshot does not carry them.
func (c *Connector) ApplyBook(snap domain.OrderbookSnapshot) {
	if snap.BestBid == 0 && len(snap.Bids) > 0 {
		snap.BestBid = snap.Bids[0].Price
	}
	if snap.BestAsk == 0 && len(snap.Asks) > 0 {
		snap.BestAsk = snap.Asks[0].Price
	}
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	c.mu.Lock()
	c.books[snap.Pair.String()] = snap
	c.mu.Unlock()
}

// OrderBook returns the current snapshot for a pair.
func (c *Connector) OrderBook(pair domain.Pair) (domain.OrderbookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.books[pair.String()]
	if !ok {
		return domain.OrderbookSnapshot{}, fmt.Errorf("paper: order book %s: %w", pair, domain.ErrNotFound)
	}
	return snap, nil
}

func (c *Connector) rule(pair domain.Pair) PrecisionRule {
	if r, ok := c.prec[pair.String()]; ok {
		return r
	}
	return defaultPrecision
}

// QuantizeAmount floors the amount to the pair's step. Amounts below the
// minimum tradable size quantize to zero.
func (c *Connector) QuantizeAmount(pair domain.Pair, amount float64) float64 {
	r := c.rule(pair)
	q := floorToStep(amount, r.AmountStep)
	if q <= 0 || q < r.MinAmount {
		return 0
	}
	return q
}

// QuantizePrice floors the price to the pair's price step.
func (c *Connector) QuantizePrice(pair domain.Pair, price float64) float64 {
	return floorToStep(price, c.rule(pair).PriceStep)
}

// floorToStep rounds v down to a multiple of step. The epsilon absorbs float
// representation error so exact multiples survive the division.
func floorToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Floor(v/step+1e-9) * step
}

// walkFill consumes book depth for a market order of the given base amount and
// returns the filled base amount and quote volume moved. BUY walks asks, SELL
// walks bids.
func (c *Connector) walkFill(snap domain.OrderbookSnapshot, side domain.OrderSide, amount float64) (filled, volume float64) {
	levels := snap.Asks
	if side == domain.OrderSideSell {
		levels = snap.Bids
	}
	remaining := amount
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, lvl.Amount)
		filled += take
		volume += take * lvl.Price
		remaining -= take
	}
	return filled, volume
}

// EstimateExecutionPrice returns the expected average fill price for a market
// order against current depth.
func (c *Connector) EstimateExecutionPrice(pair domain.Pair, side domain.OrderSide, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("paper: estimate execution price %s: non-positive amount", pair)
	}
	snap, err := c.OrderBook(pair)
	if err != nil {
		return 0, err
	}
	filled, volume := c.walkFill(snap, side, amount)
	if filled == 0 {
		return 0, fmt.Errorf("paper: estimate execution price %s: empty book side", pair)
	}
	return volume / filled, nil
}

// SimulateExecutionVolume returns the quote volume obtained (SELL) or spent
// (BUY) for filling the base amount against current depth. A thin book yields
// the best-effort volume for whatever depth exists.
func (c *Connector) SimulateExecutionVolume(pair domain.Pair, side domain.OrderSide, amount float64) (float64, error) {
	snap, err := c.OrderBook(pair)
	if err != nil {
		return 0, err
	}
	_, volume := c.walkFill(snap, side, amount)
	return volume, nil
}

// AvailableBalance returns the free balance of an asset.
func (c *Connector) AvailableBalance(asset string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[asset], nil
}

// AdjustCandidateAllOrNone applies the budget check: the candidate comes back
// with its full amount when the spending balance covers it, and a zero amount
// otherwise. There is no partial adjustment.
func (c *Connector) AdjustCandidateAllOrNone(cand domain.OrderCandidate) domain.OrderCandidate {
	required := cand.Amount
	spendAsset := cand.Pair.Base
	if cand.Side == domain.OrderSideBuy {
		spendAsset = cand.Pair.Quote
		vol, err := c.SimulateExecutionVolume(cand.Pair, cand.Side, cand.Amount)
		if err != nil {
			cand.Amount = 0
			return cand
		}
		required = vol
	}

	c.mu.Lock()
	available := c.balances[spendAsset]
	c.mu.Unlock()

	if available < required {
		cand.Amount = 0
	}
	return cand
}

// SubmitOrder fills a market order against current depth and settles balances.
// The order id returns immediately; created/filled/completed (or failed)
// notifications follow asynchronously on Events, in venue order.
func (c *Connector) SubmitOrder(ctx context.Context, cand domain.OrderCandidate) (string, error) {
	_ = ctx

	snap, err := c.OrderBook(cand.Pair)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", domain.ErrConnectorClosed
	}

	orderID := uuid.New().String()
	order := domain.Order{
		ID:        orderID,
		Pair:      cand.Pair,
		Side:      cand.Side,
		Type:      cand.Type,
		Amount:    cand.Amount,
		Price:     cand.Price,
		Status:    domain.OrderStatusNew,
		CreatedAt: time.Now().UTC(),
	}

	filled, volume := c.walkFill(snap, cand.Side, cand.Amount)
	if filled+1e-12 < cand.Amount {
		order.Status = domain.OrderStatusFailed
		c.orders[orderID] = order
		c.emit(order, 0, 0, "insufficient book depth")
		return orderID, nil
	}

	avgPrice := volume / filled
	if cand.Side == domain.OrderSideBuy {
		quote := cand.Pair.Quote
		if c.balances[quote] < volume {
			order.Status = domain.OrderStatusFailed
			c.orders[orderID] = order
			c.emit(order, 0, 0, "insufficient balance")
			return orderID, nil
		}
		c.balances[quote] -= volume
		c.balances[cand.Pair.Base] += filled * (1 - c.takerFee)
	} else {
		base := cand.Pair.Base
		if c.balances[base] < cand.Amount {
			order.Status = domain.OrderStatusFailed
			c.orders[orderID] = order
			c.emit(order, 0, 0, "insufficient balance")
			return orderID, nil
		}
		c.balances[base] -= cand.Amount
		c.balances[cand.Pair.Quote] += volume * (1 - c.takerFee)
	}

	order.Filled = filled
	order.Status = domain.OrderStatusFilled
	c.orders[orderID] = order
	c.emit(order, filled, avgPrice, "")

	c.logger.Debug("order filled",
		slog.String("order_id", orderID),
		slog.String("pair", cand.Pair.String()),
		slog.String("side", string(cand.Side)),
		slog.Float64("amount", filled),
		slog.Float64("avg_price", avgPrice),
	)
	return orderID, nil
}

// emit delivers the notification sequence for one order on its own goroutine
// so slow consumers never block venue state. Per-order ordering is preserved
// because one goroutine sends the whole sequence.
func (c *Connector) emit(order domain.Order, filled, avgPrice float64, failReason string) {
	events := []domain.OrderEvent{{
		Type:      domain.OrderEventCreated,
		OrderID:   order.ID,
		Pair:      order.Pair,
		Side:      order.Side,
		Timestamp: time.Now().UTC(),
	}}

	if failReason != "" {
		events = append(events, domain.OrderEvent{
			Type:      domain.OrderEventFailed,
			OrderID:   order.ID,
			Pair:      order.Pair,
			Side:      order.Side,
			Reason:    failReason,
			Timestamp: time.Now().UTC(),
		})
	} else {
		events = append(events,
			domain.OrderEvent{
				Type:      domain.OrderEventFilled,
				OrderID:   order.ID,
				Pair:      order.Pair,
				Side:      order.Side,
				Price:     avgPrice,
				Amount:    filled,
				Timestamp: time.Now().UTC(),
			},
			domain.OrderEvent{
				Type:      domain.OrderEventCompleted,
				OrderID:   order.ID,
				Pair:      order.Pair,
				Side:      order.Side,
				Price:     avgPrice,
				Amount:    filled,
				Timestamp: time.Now().UTC(),
			},
		)
	}

	ch := c.events
	go func() {
		for _, ev := range events {
			ch <- ev
		}
	}()
}

// CancelOrder cancels a known, still-open order. Market orders settle
// immediately in the simulation, so this mostly acknowledges engine-side
// best-effort cancellation.
func (c *Connector) CancelOrder(ctx context.Context, orderID string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[orderID]
	if !ok {
		return fmt.Errorf("paper: cancel order %s: %w", orderID, domain.ErrUnknownOrder)
	}
	if order.Status == domain.OrderStatusNew {
		order.Status = domain.OrderStatusCancelled
		c.orders[orderID] = order
	}
	return nil
}

// EstimateFee returns the venue fee rate as a fraction of traded volume.
func (c *Connector) EstimateFee(isMaker bool) float64 {
	if isMaker {
		return c.makerFee
	}
	return c.takerFee
}

// Events is the inbound order notification stream.
func (c *Connector) Events() <-chan domain.OrderEvent {
	return c.events
}

// Close stops event delivery. Pending emit goroutines may still drain into
// the buffered channel; Close only marks the venue closed for new orders.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Compile-time interface check.
var _ domain.Connector = (*Connector)(nil)
