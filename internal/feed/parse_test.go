package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"

	"github.com/quantverse/triarb/internal/domain"
)

func testSymbols() map[string]domain.Pair {
	return map[string]domain.Pair{
		"adausdt@depth20@100ms": {Base: "ADA", Quote: "USDT"},
		"btcusdt@depth20@100ms": {Base: "BTC", Quote: "USDT"},
	}
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "adausdt@depth20@100ms", streamName(domain.Pair{Base: "ADA", Quote: "USDT"}, 20))
	assert.Equal(t, "btcusdt@depth5@100ms", streamName(domain.Pair{Base: "BTC", Quote: "USDT"}, 5))
}

func TestParseDepthMessage(t *testing.T) {
	raw := []byte(`{
		"stream": "adausdt@depth20@100ms",
		"data": {
			"lastUpdateId": 160,
			"bids": [["0.49", "120.5"], ["0.48", "80.0"]],
			"asks": [["0.50", "64.0"], ["0.51", "200.0"]]
		}
	}`)

	snap, err := parseDepthMessage(new(fastjson.Parser), raw, testSymbols())
	require.NoError(t, err)

	assert.Equal(t, "ADA-USDT", snap.Pair.String())
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, domain.PriceLevel{Price: 0.49, Amount: 120.5}, snap.Bids[0])
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, domain.PriceLevel{Price: 0.50, Amount: 64.0}, snap.Asks[0])
	assert.Equal(t, 0.49, snap.BestBid)
	assert.Equal(t, 0.50, snap.BestAsk)
	assert.InDelta(t, 0.495, snap.MidPrice, 1e-12)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestParseDepthMessageDropsZeroAmountLevels(t *testing.T) {
	raw := []byte(`{
		"stream": "btcusdt@depth20@100ms",
		"data": {
			"bids": [["100.0", "0.00000000"], ["99.0", "2.0"]],
			"asks": [["101.0", "1.0"]]
		}
	}`)

	snap, err := parseDepthMessage(new(fastjson.Parser), raw, testSymbols())
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 99.0, snap.Bids[0].Price)
}

func TestParseDepthMessageSkipsNonDepthFrames(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"result": null, "id": 1}`),
		[]byte(`{"stream": "ethusdt@depth20@100ms", "data": {"bids": [], "asks": []}}`),
	}
	for _, raw := range cases {
		_, err := parseDepthMessage(new(fastjson.Parser), raw, testSymbols())
		assert.ErrorIs(t, err, ErrSkipMessage)
	}
}

func TestParseDepthMessageMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"stream": "adausdt@depth20@100ms"}`),
		[]byte(`{"stream": "adausdt@depth20@100ms", "data": {"bids": [["abc", "1"]], "asks": []}}`),
		[]byte(`{"stream": "adausdt@depth20@100ms", "data": {"bids": [["1.0"]], "asks": []}}`),
	}
	for _, raw := range cases {
		_, err := parseDepthMessage(new(fastjson.Parser), raw, testSymbols())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSkipMessage)
	}
}
