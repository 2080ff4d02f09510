package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/quantverse/triarb/internal/domain"
)

// streamName returns the combined-stream name for a pair's partial depth
// channel, e.g. ADA-USDT depth 20 -> "adausdt@depth20@100ms".
func streamName(pair domain.Pair, depth int) string {
	symbol := strings.ToLower(pair.Base + pair.Quote)
	return fmt.Sprintf("%s@depth%d@100ms", symbol, depth)
}

// parseDepthMessage decodes a combined-stream partial depth message:
//
//	{"stream":"adausdt@depth20@100ms","data":{"lastUpdateId":1,
//	  "bids":[["0.45","120.5"],...],"asks":[["0.46","80.0"],...]}}
//
// The stream name maps back to a pair via the symbols table. Messages for
// unknown streams (subscription acks, other channels) return ErrSkipMessage.
func parseDepthMessage(p *fastjson.Parser, raw []byte, symbols map[string]domain.Pair) (domain.OrderbookSnapshot, error) {
	v, err := p.ParseBytes(raw)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("feed: parse message: %w", err)
	}

	stream := string(v.GetStringBytes("stream"))
	if stream == "" {
		return domain.OrderbookSnapshot{}, ErrSkipMessage
	}
	pair, ok := symbols[stream]
	if !ok {
		return domain.OrderbookSnapshot{}, ErrSkipMessage
	}

	data := v.Get("data")
	if data == nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("feed: message for %s has no data object", stream)
	}

	bids, err := parseLevels(data.GetArray("bids"))
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("feed: %s bids: %w", pair, err)
	}
	asks, err := parseLevels(data.GetArray("asks"))
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("feed: %s asks: %w", pair, err)
	}

	snap := domain.OrderbookSnapshot{
		Pair:      pair,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}
	if len(bids) > 0 {
		snap.BestBid = bids[0].Price
	}
	if len(asks) > 0 {
		snap.BestAsk = asks[0].Price
	}
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
	}
	return snap, nil
}

// parseLevels converts a depth array of ["price","amount"] string tuples.
// Zero-amount levels (deletions in the exchange encoding) are dropped.
func parseLevels(arr []*fastjson.Value) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(arr))
	for _, entry := range arr {
		tuple := entry.GetArray()
		if len(tuple) < 2 {
			return nil, fmt.Errorf("level tuple has %d elements, want 2", len(tuple))
		}
		price, err := strconv.ParseFloat(string(tuple[0].GetStringBytes()), 64)
		if err != nil {
			return nil, fmt.Errorf("bad price: %w", err)
		}
		amount, err := strconv.ParseFloat(string(tuple[1].GetStringBytes()), 64)
		if err != nil {
			return nil, fmt.Errorf("bad amount: %w", err)
		}
		if amount <= 0 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Amount: amount})
	}
	return levels, nil
}
