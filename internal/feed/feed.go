// Package feed streams live partial depth snapshots from the exchange's
// combined websocket endpoint and pushes them into the connector's books.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"

	"github.com/quantverse/triarb/internal/domain"
	"github.com/quantverse/triarb/internal/metrics"
)

// ErrSkipMessage marks websocket frames that carry no depth data
// (subscription acks, foreign channels). They are dropped silently.
var ErrSkipMessage = errors.New("feed: message skipped")

// BookSink receives each parsed depth snapshot. The paper connector's
// ApplyBook satisfies it.
type BookSink interface {
	ApplyBook(snap domain.OrderbookSnapshot)
}

// Config holds the feed's connection parameters.
type Config struct {
	WsURL          string
	Depth          int
	ReconnectDelay time.Duration
	Pairs          [3]domain.Pair
}

// CacheWriter mirrors snapshots into an external cache. Optional.
type CacheWriter interface {
	SetSnapshot(ctx context.Context, snap domain.OrderbookSnapshot) error
}

// Feed owns the websocket connection and its read loop.
type Feed struct {
	cfg     Config
	sink    BookSink
	cache   CacheWriter
	logger  *slog.Logger
	symbols map[string]domain.Pair
}

// New creates a Feed delivering snapshots for the configured pairs to sink.
// cache may be nil.
func New(cfg Config, sink BookSink, cache CacheWriter, logger *slog.Logger) *Feed {
	symbols := make(map[string]domain.Pair, len(cfg.Pairs))
	for _, pair := range cfg.Pairs {
		symbols[streamName(pair, cfg.Depth)] = pair
	}
	return &Feed{
		cfg:     cfg,
		sink:    sink,
		cache:   cache,
		logger:  logger.With(slog.String("component", "feed")),
		symbols: symbols,
	}
}

// Run connects and consumes depth messages until ctx is cancelled. Connection
// drops are retried after the configured reconnect delay.
func (f *Feed) Run(ctx context.Context) error {
	for {
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", f.cfg.ReconnectDelay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

// consume dials, subscribes and reads messages until the connection breaks or
// ctx is cancelled.
func (f *Feed) consume(ctx context.Context) error {
	endpoint, err := f.endpointURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.cfg.WsURL, err)
	}
	defer conn.Close()

	f.logger.Info("feed connected",
		slog.String("url", f.cfg.WsURL),
		slog.Int("streams", len(f.symbols)))

	// Close the socket on cancellation to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	parser := new(fastjson.Parser)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", domain.ErrWSDisconnect)
		}

		snap, err := parseDepthMessage(parser, raw, f.symbols)
		if err != nil {
			if errors.Is(err, ErrSkipMessage) {
				continue
			}
			f.logger.Warn("dropping malformed depth message", slog.String("error", err.Error()))
			continue
		}

		f.sink.ApplyBook(snap)
		metrics.FeedUpdates.Inc()

		if f.cache != nil {
			if err := f.cache.SetSnapshot(ctx, snap); err != nil {
				f.logger.Warn("book cache write failed",
					slog.String("pair", snap.Pair.String()),
					slog.String("error", err.Error()))
			}
		}
	}
}

// endpointURL builds the combined-stream URL with all pair streams in the
// query, e.g. wss://host/stream?streams=adausdt@depth20@100ms/adabtc@...
func (f *Feed) endpointURL() (string, error) {
	u, err := url.Parse(f.cfg.WsURL)
	if err != nil {
		return "", fmt.Errorf("feed: bad ws_url %q: %w", f.cfg.WsURL, err)
	}

	streams := make([]string, 0, len(f.cfg.Pairs))
	for _, pair := range f.cfg.Pairs {
		streams = append(streams, streamName(pair, f.cfg.Depth))
	}
	// The exchange expects literal "@" and "/" in the streams parameter, so
	// the query is assembled without escaping.
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}
