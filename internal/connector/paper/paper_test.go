package paper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantverse/triarb/internal/domain"
)

var adaUSDT = domain.Pair{Base: "ADA", Quote: "USDT"}

func newTestConnector(t *testing.T) *Connector {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(Config{
		TakerFeeRate: 0.001,
		Balances:     map[string]float64{"USDT": 1000, "ADA": 500},
		Precision: map[string]PrecisionRule{
			"ADA-USDT": {AmountStep: 0.01, PriceStep: 0.0001, MinAmount: 1},
		},
	}, logger)

	c.ApplyBook(domain.OrderbookSnapshot{
		Pair: adaUSDT,
		Bids: []domain.PriceLevel{
			{Price: 0.49, Amount: 100},
			{Price: 0.48, Amount: 200},
		},
		Asks: []domain.PriceLevel{
			{Price: 0.50, Amount: 100},
			{Price: 0.51, Amount: 200},
		},
	})
	return c
}

func drainEvents(t *testing.T, c *Connector, n int) []domain.OrderEvent {
	t.Helper()
	events := make([]domain.OrderEvent, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-c.Events():
			events = append(events, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	return events
}

func TestApplyBookDerivesBBOAndMid(t *testing.T) {
	c := newTestConnector(t)

	snap, err := c.OrderBook(adaUSDT)
	require.NoError(t, err)
	assert.Equal(t, 0.49, snap.BestBid)
	assert.Equal(t, 0.50, snap.BestAsk)
	assert.InDelta(t, 0.495, snap.MidPrice, 1e-12)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestOrderBookUnknownPair(t *testing.T) {
	c := newTestConnector(t)
	_, err := c.OrderBook(domain.Pair{Base: "ETH", Quote: "USDT"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuantizeAmount(t *testing.T) {
	c := newTestConnector(t)

	assert.InDelta(t, 2.56, c.QuantizeAmount(adaUSDT, 2.567), 1e-12)
	assert.InDelta(t, 2.56, c.QuantizeAmount(adaUSDT, 2.56), 1e-12)
	// Below the minimum tradable size.
	assert.Zero(t, c.QuantizeAmount(adaUSDT, 0.5))
	assert.Zero(t, c.QuantizeAmount(adaUSDT, 0))
}

func TestQuantizePrice(t *testing.T) {
	c := newTestConnector(t)
	assert.InDelta(t, 0.4951, c.QuantizePrice(adaUSDT, 0.49519), 1e-12)
}

func TestEstimateExecutionPriceAveragesLevels(t *testing.T) {
	c := newTestConnector(t)

	// 150 ADA: 100 at 0.50 plus 50 at 0.51.
	price, err := c.EstimateExecutionPrice(adaUSDT, domain.OrderSideBuy, 150)
	require.NoError(t, err)
	assert.InDelta(t, (100*0.50+50*0.51)/150, price, 1e-12)
}

func TestEstimateExecutionPriceEmptyBook(t *testing.T) {
	c := newTestConnector(t)
	c.ApplyBook(domain.OrderbookSnapshot{Pair: adaUSDT})

	_, err := c.EstimateExecutionPrice(adaUSDT, domain.OrderSideBuy, 10)
	assert.Error(t, err)
}

func TestSimulateExecutionVolumeBestEffort(t *testing.T) {
	c := newTestConnector(t)

	// The ask side only carries 300 ADA; the walk fills what exists.
	vol, err := c.SimulateExecutionVolume(adaUSDT, domain.OrderSideBuy, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 100*0.50+200*0.51, vol, 1e-12)
}

func TestAdjustCandidateAllOrNone(t *testing.T) {
	c := newTestConnector(t)

	buy := domain.OrderCandidate{Pair: adaUSDT, Side: domain.OrderSideBuy, Amount: 100}
	assert.Equal(t, 100.0, c.AdjustCandidateAllOrNone(buy).Amount)

	// 2100 USDT of ADA against a 1000 USDT balance: no partial adjustment.
	bigBuy := domain.OrderCandidate{Pair: adaUSDT, Side: domain.OrderSideBuy, Amount: 300}
	c.ApplyBook(domain.OrderbookSnapshot{
		Pair: adaUSDT,
		Asks: []domain.PriceLevel{{Price: 7, Amount: 300}},
	})
	assert.Zero(t, c.AdjustCandidateAllOrNone(bigBuy).Amount)

	sell := domain.OrderCandidate{Pair: adaUSDT, Side: domain.OrderSideSell, Amount: 400}
	assert.Equal(t, 400.0, c.AdjustCandidateAllOrNone(sell).Amount)

	bigSell := domain.OrderCandidate{Pair: adaUSDT, Side: domain.OrderSideSell, Amount: 600}
	assert.Zero(t, c.AdjustCandidateAllOrNone(bigSell).Amount)
}

func TestSubmitOrderBuySettlesBalancesWithFee(t *testing.T) {
	c := newTestConnector(t)
	ctx := context.Background()

	orderID, err := c.SubmitOrder(ctx, domain.OrderCandidate{
		Pair: adaUSDT, Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	events := drainEvents(t, c, 3)
	assert.Equal(t, domain.OrderEventCreated, events[0].Type)
	assert.Equal(t, domain.OrderEventFilled, events[1].Type)
	assert.Equal(t, domain.OrderEventCompleted, events[2].Type)
	for _, ev := range events {
		assert.Equal(t, orderID, ev.OrderID)
	}
	assert.InDelta(t, 0.50, events[1].Price, 1e-12)

	usdt, _ := c.AvailableBalance("USDT")
	ada, _ := c.AvailableBalance("ADA")
	assert.InDelta(t, 1000-50, usdt, 1e-9)
	assert.InDelta(t, 500+100*(1-0.001), ada, 1e-9)
}

func TestSubmitOrderSellSettlesBalancesWithFee(t *testing.T) {
	c := newTestConnector(t)
	ctx := context.Background()

	orderID, err := c.SubmitOrder(ctx, domain.OrderCandidate{
		Pair: adaUSDT, Side: domain.OrderSideSell, Type: domain.OrderTypeMarket, Amount: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	drainEvents(t, c, 3)

	usdt, _ := c.AvailableBalance("USDT")
	ada, _ := c.AvailableBalance("ADA")
	assert.InDelta(t, 1000+100*0.49*(1-0.001), usdt, 1e-9)
	assert.InDelta(t, 500-100, ada, 1e-9)
}

func TestSubmitOrderUnderfillFails(t *testing.T) {
	c := newTestConnector(t)
	ctx := context.Background()

	orderID, err := c.SubmitOrder(ctx, domain.OrderCandidate{
		Pair: adaUSDT, Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 500,
	})
	require.NoError(t, err)

	events := drainEvents(t, c, 2)
	assert.Equal(t, domain.OrderEventCreated, events[0].Type)
	assert.Equal(t, domain.OrderEventFailed, events[1].Type)
	assert.Equal(t, orderID, events[1].OrderID)
	assert.Equal(t, "insufficient book depth", events[1].Reason)

	// Balances untouched on failure.
	usdt, _ := c.AvailableBalance("USDT")
	assert.Equal(t, 1000.0, usdt)
}

func TestSubmitOrderInsufficientBalanceFails(t *testing.T) {
	c := newTestConnector(t)
	ctx := context.Background()

	c.ApplyBook(domain.OrderbookSnapshot{
		Pair: adaUSDT,
		Asks: []domain.PriceLevel{{Price: 7, Amount: 300}},
	})
	_, err := c.SubmitOrder(ctx, domain.OrderCandidate{
		Pair: adaUSDT, Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 300,
	})
	require.NoError(t, err)

	events := drainEvents(t, c, 2)
	assert.Equal(t, domain.OrderEventFailed, events[1].Type)
	assert.Equal(t, "insufficient balance", events[1].Reason)
}

func TestCancelOrder(t *testing.T) {
	c := newTestConnector(t)
	ctx := context.Background()

	orderID, err := c.SubmitOrder(ctx, domain.OrderCandidate{
		Pair: adaUSDT, Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 10,
	})
	require.NoError(t, err)
	drainEvents(t, c, 3)

	assert.NoError(t, c.CancelOrder(ctx, orderID))
	assert.ErrorIs(t, c.CancelOrder(ctx, "no-such-order"), domain.ErrUnknownOrder)
}

func TestSubmitOrderAfterClose(t *testing.T) {
	c := newTestConnector(t)
	c.Close()

	_, err := c.SubmitOrder(context.Background(), domain.OrderCandidate{
		Pair: adaUSDT, Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 10,
	})
	assert.ErrorIs(t, err, domain.ErrConnectorClosed)
}
