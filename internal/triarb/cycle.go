// Package triarb implements the triangular arbitrage core: cycle derivation,
// depth-aware profit evaluation and the sequential order execution engine.
package triarb

import (
	"fmt"

	"github.com/quantverse/triarb/internal/domain"
)

// Direction names one of the two possible traversals of the three pairs.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// Leg is one trade of a cycle: which pair to trade and which side.
type Leg struct {
	Pair domain.Pair
	Side domain.OrderSide
}

// TradingCycle is an ordered traversal of the three pairs that starts and ends
// in the holding asset. Derived once at initialization, immutable thereafter.
type TradingCycle struct {
	Direction Direction
	Legs      [3]Leg
}

// BuildCycles validates the configured pairs and derives both traversal
// directions. The pairs must reference exactly three distinct assets, one of
// them the holding asset, and exactly two pairs must contain the holding
// asset; anything else cannot form a closed triangle.
//
// Legs are ordered so that the asset held after each leg is consumed by the
// next: the cycle opens with the first holding-asset pair (configuration
// order), crosses the pair without the holding asset, and closes with the
// remaining holding-asset pair. The reverse cycle is the exact reversal.
func BuildCycles(pairs [3]domain.Pair, holdingAsset string) (forward, reverse TradingCycle, err error) {
	assets := make(map[string]struct{}, 3)
	for _, p := range pairs {
		assets[p.Base] = struct{}{}
		assets[p.Quote] = struct{}{}
	}
	if len(assets) != 3 {
		return forward, reverse, fmt.Errorf("triarb: pairs %s, %s, %s reference %d assets, want 3: %w",
			pairs[0], pairs[1], pairs[2], len(assets), domain.ErrInvalidPairSet)
	}
	if _, ok := assets[holdingAsset]; !ok {
		return forward, reverse, fmt.Errorf("triarb: holding asset %s not in pairs: %w",
			holdingAsset, domain.ErrInvalidPairSet)
	}

	var withHolding, without []domain.Pair
	for _, p := range pairs {
		if p.Contains(holdingAsset) {
			withHolding = append(withHolding, p)
		} else {
			without = append(without, p)
		}
	}
	if len(withHolding) != 2 || len(without) != 1 {
		return forward, reverse, fmt.Errorf("triarb: %d pair(s) contain holding asset %s, want exactly 2: %w",
			len(withHolding), holdingAsset, domain.ErrInvalidPairSet)
	}

	ordered := [3]domain.Pair{withHolding[0], without[0], withHolding[1]}
	reversed := [3]domain.Pair{ordered[2], ordered[1], ordered[0]}

	forward, err = deriveSides(DirectionForward, ordered, holdingAsset)
	if err != nil {
		return forward, reverse, err
	}
	reverse, err = deriveSides(DirectionReverse, reversed, holdingAsset)
	if err != nil {
		return forward, reverse, err
	}
	return forward, reverse, nil
}

// deriveSides walks a held-asset tracker through the ordered pairs. A pair
// whose base matches the held asset is a SELL (we end up holding the quote); a
// quote match is a BUY. A pair matching neither breaks the chain.
func deriveSides(dir Direction, ordered [3]domain.Pair, holdingAsset string) (TradingCycle, error) {
	cycle := TradingCycle{Direction: dir}
	held := holdingAsset
	for i, p := range ordered {
		switch held {
		case p.Base:
			cycle.Legs[i] = Leg{Pair: p, Side: domain.OrderSideSell}
			held = p.Quote
		case p.Quote:
			cycle.Legs[i] = Leg{Pair: p, Side: domain.OrderSideBuy}
			held = p.Base
		default:
			return cycle, fmt.Errorf("triarb: %s cycle leg %d: held asset %s not in pair %s: %w",
				dir, i, held, p, domain.ErrInvalidPairSet)
		}
	}
	if held != holdingAsset {
		return cycle, fmt.Errorf("triarb: %s cycle does not return to holding asset %s: %w",
			dir, holdingAsset, domain.ErrInvalidPairSet)
	}
	return cycle, nil
}
