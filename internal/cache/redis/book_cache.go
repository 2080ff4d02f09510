package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantverse/triarb/internal/domain"
)

// BookCache mirrors the latest depth snapshot per pair into Redis so the
// status surface (and any sidecar tooling) can inspect the books the engine
// trades against without touching the live connector.
//
// Key schema:
//
//	book:{pair}:bids  - sorted set of bid prices (score = price)
//	book:{pair}:asks  - sorted set of ask prices (score = price)
//	book:{pair}:bid:amount - hash mapping price -> amount for bids
//	book:{pair}:ask:amount - hash mapping price -> amount for asks
//	book:{pair}:bbo   - hash with fields "bid" and "ask" (best prices)
//	book:{pair}:meta  - hash with "ts" field (snapshot timestamp)
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.rdb}
}

func bookBidsKey(pair string) string      { return "book:" + pair + ":bids" }
func bookAsksKey(pair string) string      { return "book:" + pair + ":asks" }
func bookBidAmountKey(pair string) string { return "book:" + pair + ":bid:amount" }
func bookAskAmountKey(pair string) string { return "book:" + pair + ":ask:amount" }
func bookBBOKey(pair string) string       { return "book:" + pair + ":bbo" }
func bookMetaKey(pair string) string      { return "book:" + pair + ":meta" }

// SetSnapshot atomically replaces the cached snapshot for a pair.
func (bc *BookCache) SetSnapshot(ctx context.Context, snap domain.OrderbookSnapshot) error {
	pair := snap.Pair.String()
	bidsKey := bookBidsKey(pair)
	asksKey := bookAsksKey(pair)
	bidAmountKey := bookBidAmountKey(pair)
	askAmountKey := bookAskAmountKey(pair)
	bboKey := bookBBOKey(pair)
	metaKey := bookMetaKey(pair)

	pipe := bc.rdb.TxPipeline()

	pipe.Del(ctx, bidsKey, asksKey, bidAmountKey, askAmountKey, bboKey, metaKey)

	for _, lvl := range snap.Bids {
		priceStr := strconv.FormatFloat(lvl.Price, 'f', -1, 64)
		amountStr := strconv.FormatFloat(lvl.Amount, 'f', -1, 64)
		pipe.ZAdd(ctx, bidsKey, redis.Z{Score: lvl.Price, Member: priceStr})
		pipe.HSet(ctx, bidAmountKey, priceStr, amountStr)
	}
	for _, lvl := range snap.Asks {
		priceStr := strconv.FormatFloat(lvl.Price, 'f', -1, 64)
		amountStr := strconv.FormatFloat(lvl.Amount, 'f', -1, 64)
		pipe.ZAdd(ctx, asksKey, redis.Z{Score: lvl.Price, Member: priceStr})
		pipe.HSet(ctx, askAmountKey, priceStr, amountStr)
	}

	if snap.BestBid > 0 {
		pipe.HSet(ctx, bboKey, "bid", strconv.FormatFloat(snap.BestBid, 'f', -1, 64))
	}
	if snap.BestAsk > 0 {
		pipe.HSet(ctx, bboKey, "ask", strconv.FormatFloat(snap.BestAsk, 'f', -1, 64))
	}

	pipe.HSet(ctx, metaKey, "ts", strconv.FormatInt(snap.Timestamp.UnixNano(), 10))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book snapshot %s: %w", pair, err)
	}
	return nil
}

// GetSnapshot reconstructs a full snapshot from Redis. It returns
// domain.ErrNotFound if no snapshot data exists for the pair.
func (bc *BookCache) GetSnapshot(ctx context.Context, pair domain.Pair) (domain.OrderbookSnapshot, error) {
	key := pair.String()

	pipe := bc.rdb.Pipeline()
	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookBidsKey(key), 0, -1)
	asksCmd := pipe.ZRangeWithScores(ctx, bookAsksKey(key), 0, -1)
	bidAmountCmd := pipe.HGetAll(ctx, bookBidAmountKey(key))
	askAmountCmd := pipe.HGetAll(ctx, bookAskAmountKey(key))
	bboCmd := pipe.HGetAll(ctx, bookBBOKey(key))
	metaCmd := pipe.HGetAll(ctx, bookMetaKey(key))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get book snapshot %s: %w", key, err)
	}

	metaVals, _ := metaCmd.Result()
	if len(metaVals) == 0 {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}

	snap := domain.OrderbookSnapshot{Pair: pair}

	if tsStr, ok := metaVals["ts"]; ok {
		if tsNano, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			snap.Timestamp = time.Unix(0, tsNano)
		}
	}

	snap.Bids = levelsFromRedis(bidsCmd, bidAmountCmd)
	snap.Asks = levelsFromRedis(asksCmd, askAmountCmd)

	bboVals, _ := bboCmd.Result()
	if bidStr, ok := bboVals["bid"]; ok {
		snap.BestBid, _ = strconv.ParseFloat(bidStr, 64)
	}
	if askStr, ok := bboVals["ask"]; ok {
		snap.BestAsk, _ = strconv.ParseFloat(askStr, 64)
	}
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
	}

	return snap, nil
}

// levelsFromRedis joins a price zset with its amount hash into price levels,
// preserving the zset's ordering.
func levelsFromRedis(zCmd *redis.ZSliceCmd, hCmd *redis.MapStringStringCmd) []domain.PriceLevel {
	amounts, _ := hCmd.Result()
	zs, _ := zCmd.Result()

	levels := make([]domain.PriceLevel, 0, len(zs))
	for _, z := range zs {
		priceStr, ok := z.Member.(string)
		if !ok {
			continue
		}
		amount := 0.0
		if amountStr, exists := amounts[priceStr]; exists {
			amount, _ = strconv.ParseFloat(amountStr, 64)
		}
		levels = append(levels, domain.PriceLevel{Price: z.Score, Amount: amount})
	}
	return levels
}

// GetBBO retrieves the current best bid and best ask for a pair. It returns
// domain.ErrNotFound if no BBO data exists.
func (bc *BookCache) GetBBO(ctx context.Context, pair domain.Pair) (bestBid, bestAsk float64, err error) {
	vals, err := bc.rdb.HGetAll(ctx, bookBBOKey(pair.String())).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get bbo %s: %w", pair, err)
	}
	if len(vals) == 0 {
		return 0, 0, domain.ErrNotFound
	}

	if bidStr, ok := vals["bid"]; ok {
		bestBid, _ = strconv.ParseFloat(bidStr, 64)
	}
	if askStr, ok := vals["ask"]; ok {
		bestAsk, _ = strconv.ParseFloat(askStr, 64)
	}
	return bestBid, bestAsk, nil
}
