package triarb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantverse/triarb/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubConnector is a scripted venue: per pair-and-side conversion rates drive
// price estimation and fill simulation, and submissions are recorded so tests
// can assert on the order flow.
type stubConnector struct {
	rates         map[string]float64 // "PAIR/SIDE" -> quote volume per base unit
	fee           float64
	balances      map[string]float64
	quantZero     map[string]bool // pairs whose leg amounts evaluate to zero
	candQuantZero map[string]bool // pairs whose candidate amounts quantize to zero
	adjustZero    map[string]bool // pairs failing the budget check
	submitErr     error
	submitted     []domain.OrderCandidate
	cancelled     []string
	nextID        int
	events        chan domain.OrderEvent
}

func newStubConnector() *stubConnector {
	return &stubConnector{
		rates:         map[string]float64{},
		balances:      map[string]float64{},
		quantZero:     map[string]bool{},
		candQuantZero: map[string]bool{},
		adjustZero:    map[string]bool{},
		events:        make(chan domain.OrderEvent, 16),
	}
}

func rateKey(pair domain.Pair, side domain.OrderSide) string {
	return pair.String() + "/" + string(side)
}

func (s *stubConnector) Name() string { return "stub" }

func (s *stubConnector) OrderBook(pair domain.Pair) (domain.OrderbookSnapshot, error) {
	return domain.OrderbookSnapshot{Pair: pair}, nil
}

func (s *stubConnector) QuantizeAmount(pair domain.Pair, amount float64) float64 {
	if s.quantZero[pair.String()] || s.candQuantZero[pair.String()] {
		return 0
	}
	return amount
}

func (s *stubConnector) QuantizePrice(pair domain.Pair, price float64) float64 { return price }

func (s *stubConnector) EstimateExecutionPrice(pair domain.Pair, side domain.OrderSide, amount float64) (float64, error) {
	rate, ok := s.rates[rateKey(pair, side)]
	if !ok {
		return 0, fmt.Errorf("stub: no rate for %s %s", pair, side)
	}
	return rate, nil
}

func (s *stubConnector) SimulateExecutionVolume(pair domain.Pair, side domain.OrderSide, amount float64) (float64, error) {
	rate, ok := s.rates[rateKey(pair, side)]
	if !ok {
		return 0, fmt.Errorf("stub: no rate for %s %s", pair, side)
	}
	return amount * rate, nil
}

func (s *stubConnector) AvailableBalance(asset string) (float64, error) {
	return s.balances[asset], nil
}

func (s *stubConnector) AdjustCandidateAllOrNone(c domain.OrderCandidate) domain.OrderCandidate {
	if s.adjustZero[c.Pair.String()] {
		c.Amount = 0
	}
	return c
}

func (s *stubConnector) SubmitOrder(ctx context.Context, c domain.OrderCandidate) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.nextID++
	s.submitted = append(s.submitted, c)
	return fmt.Sprintf("order-%d", s.nextID), nil
}

func (s *stubConnector) CancelOrder(ctx context.Context, orderID string) error {
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

func (s *stubConnector) EstimateFee(isMaker bool) float64 { return s.fee }

func (s *stubConnector) Events() <-chan domain.OrderEvent { return s.events }

var _ domain.Connector = (*stubConnector)(nil)

// stubAnalyzer converts BUY legs through the scripted rate and passes SELL
// amounts straight through, mirroring the depth-walk contract.
type stubAnalyzer struct {
	conn *stubConnector
	err  error
}

func (a *stubAnalyzer) BaseAmountForQuoteVolume(snap domain.OrderbookSnapshot, quoteVolume float64) float64 {
	return quoteVolume
}

func (a *stubAnalyzer) OrderAmountFromExchangedAmount(pair domain.Pair, side domain.OrderSide, exchanged float64) (float64, error) {
	if a.err != nil {
		return 0, a.err
	}
	if a.conn.quantZero[pair.String()] {
		return 0, nil
	}
	if side == domain.OrderSideBuy {
		rate := a.conn.rates[rateKey(pair, side)]
		return exchanged / rate, nil
	}
	return exchanged, nil
}

// profitableStub scripts a forward triangle where 100 USDT round-trips to
// 110 USDT before fees: BUY ADA at 0.5 USDT, SELL ADA at 0.1 BTC, SELL BTC
// at 11 USDT.
func profitableStub(t *testing.T) (*stubConnector, TradingCycle) {
	t.Helper()
	conn := newStubConnector()
	conn.rates[rateKey(mustPair(t, "ADA-USDT"), domain.OrderSideBuy)] = 0.5
	conn.rates[rateKey(mustPair(t, "ADA-BTC"), domain.OrderSideSell)] = 0.1
	conn.rates[rateKey(mustPair(t, "BTC-USDT"), domain.OrderSideSell)] = 11

	forward, _, err := BuildCycles(triangle(t), "USDT")
	require.NoError(t, err)
	return conn, forward
}

func TestEvaluateProfitableCycleNoFee(t *testing.T) {
	conn, forward := profitableStub(t)
	ev := NewEvaluator(conn, &stubAnalyzer{conn: conn}, discardLogger())

	profit, amounts := ev.Evaluate(forward, 100)

	assert.InDelta(t, 10.0, profit, 1e-9)
	require.Len(t, amounts, 3)
	assert.InDelta(t, 200.0, amounts[0], 1e-9) // 100 USDT buys 200 ADA at 0.5
	assert.InDelta(t, 100.0, amounts[1], 1e-9)
	assert.InDelta(t, 10.0, amounts[2], 1e-9)
}

func TestEvaluateAppliesFeePerLeg(t *testing.T) {
	conn, forward := profitableStub(t)
	conn.fee = 0.001
	ev := NewEvaluator(conn, &stubAnalyzer{conn: conn}, discardLogger())

	profit, _ := ev.Evaluate(forward, 100)

	// End amount shrinks by (1-fee) three times: 110 * 0.999^3.
	want := (110*0.999*0.999*0.999 - 100)
	assert.InDelta(t, want, profit, 1e-9)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	conn, forward := profitableStub(t)
	ev := NewEvaluator(conn, &stubAnalyzer{conn: conn}, discardLogger())

	first, _ := ev.Evaluate(forward, 100)
	second, _ := ev.Evaluate(forward, 100)
	assert.Equal(t, first, second)
}

func TestEvaluateAmountQuantizesToZero(t *testing.T) {
	conn, forward := profitableStub(t)
	conn.quantZero["ADA-BTC"] = true
	ev := NewEvaluator(conn, &stubAnalyzer{conn: conn}, discardLogger())

	profit, amounts := ev.Evaluate(forward, 100)

	assert.Equal(t, float64(NoOpportunityProfit), profit)
	assert.Nil(t, amounts)
}

func TestEvaluateBookUnavailable(t *testing.T) {
	conn, forward := profitableStub(t)
	ev := NewEvaluator(conn, &stubAnalyzer{conn: conn, err: domain.ErrNotFound}, discardLogger())

	profit, amounts := ev.Evaluate(forward, 100)

	assert.Equal(t, float64(NoOpportunityProfit), profit)
	assert.Nil(t, amounts)
}
