// Package book provides depth-aware order-book analysis: converting a target
// quote-asset value into the base-asset amount realistically obtainable by
// consuming price levels in execution-priority order.
package book

import (
	"fmt"

	"github.com/quantverse/triarb/internal/domain"
)

// Analyzer converts trade values into executable order amounts against current
// book depth. Implementations are injected into the profit evaluator so tests
// can substitute doubles.
type Analyzer interface {
	// BaseAmountForQuoteVolume walks the relevant side of the book and
	// returns the cumulative base amount purchasable (positive quoteVolume,
	// ask side) or sellable (negative quoteVolume, bid side) for the given
	// quote value.
	BaseAmountForQuoteVolume(snap domain.OrderbookSnapshot, quoteVolume float64) float64

	// OrderAmountFromExchangedAmount converts the amount carried between
	// legs into a quantized base-asset order amount for the given pair and
	// side. For a BUY the exchanged amount is a quote value and is walked
	// through the book; for a SELL it already denotes the base amount.
	OrderAmountFromExchangedAmount(pair domain.Pair, side domain.OrderSide, exchanged float64) (float64, error)
}

// Source is the slice of connector capability the default analyzer needs.
type Source interface {
	domain.BookSource
	domain.Quantizer
}

// DefaultAnalyzer implements Analyzer against a live book source.
type DefaultAnalyzer struct {
	src Source
}

// NewDefaultAnalyzer creates the standard analyzer backed by src.
func NewDefaultAnalyzer(src Source) *DefaultAnalyzer {
	return &DefaultAnalyzer{src: src}
}

// BaseAmountForQuoteVolume selects the book side by the sign of quoteVolume
// and delegates to the depth walk.
func (a *DefaultAnalyzer) BaseAmountForQuoteVolume(snap domain.OrderbookSnapshot, quoteVolume float64) float64 {
	if quoteVolume >= 0 {
		return BaseAmountForQuoteVolume(snap.Asks, quoteVolume)
	}
	return BaseAmountForQuoteVolume(snap.Bids, -quoteVolume)
}

// OrderAmountFromExchangedAmount returns the quantized base amount for one
// leg. A result of zero means the amount fell below the pair's minimum
// tradable size; callers treat that as "no opportunity", not an error.
func (a *DefaultAnalyzer) OrderAmountFromExchangedAmount(pair domain.Pair, side domain.OrderSide, exchanged float64) (float64, error) {
	amount := exchanged
	if side == domain.OrderSideBuy {
		snap, err := a.src.OrderBook(pair)
		if err != nil {
			return 0, fmt.Errorf("book: order book %s: %w", pair, err)
		}
		amount = a.BaseAmountForQuoteVolume(snap, exchanged)
	}
	return a.src.QuantizeAmount(pair, amount), nil
}

// BaseAmountForQuoteVolume is the depth walk: consume levels best-first,
// accumulating base amount, until the target quote value is met or the book is
// exhausted. The last level consumed may be fractional. A zero target returns
// zero without inspecting levels; an exhausted book returns the best-effort
// cumulative amount. Target must be non-negative.
func BaseAmountForQuoteVolume(levels []domain.PriceLevel, target float64) float64 {
	if target <= 0 {
		return 0
	}

	var cumVolume, cumAmount float64
	for _, lvl := range levels {
		rowVolume := lvl.Value()
		rowAmount := lvl.Amount
		if cumVolume+rowVolume >= target {
			rowVolume = target - cumVolume
			rowAmount = rowVolume / lvl.Price
		}
		cumVolume += rowVolume
		cumAmount += rowAmount
		if cumVolume >= target {
			break
		}
	}
	return cumAmount
}

// Compile-time interface check.
var _ Analyzer = (*DefaultAnalyzer)(nil)
