package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantverse/triarb/internal/book"
	redisc "github.com/quantverse/triarb/internal/cache/redis"
	"github.com/quantverse/triarb/internal/config"
	"github.com/quantverse/triarb/internal/connector/paper"
	"github.com/quantverse/triarb/internal/feed"
	"github.com/quantverse/triarb/internal/notify"
	"github.com/quantverse/triarb/internal/risk"
	"github.com/quantverse/triarb/internal/server"
	"github.com/quantverse/triarb/internal/triarb"
)

// Dependencies bundles every component the run loops operate on. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Conn     *paper.Connector
	Engine   *triarb.Engine
	Guard    *risk.KillSwitch
	Feed     *feed.Feed
	Server   *server.Server
	Notifier *notify.Dispatcher
}

// Wire constructs all concrete components from the given configuration and
// returns them together with a cleanup function that should be called on
// shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Notifications ---
	var channels []notify.Channel
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		channels = append(channels, notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		channels = append(channels, notify.NewDiscord(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewDispatcher(channels, cfg.Notify.Events, logger)

	// --- Connector ---
	if cfg.Connector.Name != "paper" {
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported connector %q", cfg.Connector.Name)
	}
	precision := make(map[string]paper.PrecisionRule, len(cfg.Connector.Precision))
	for pair, rule := range cfg.Connector.Precision {
		precision[pair] = paper.PrecisionRule{
			AmountStep: rule.AmountStep,
			PriceStep:  rule.PriceStep,
			MinAmount:  rule.MinAmount,
		}
	}
	conn := paper.New(paper.Config{
		TakerFeeRate: cfg.Connector.TakerFeeRate,
		MakerFeeRate: cfg.Connector.MakerFeeRate,
		Balances:     cfg.Connector.Balances,
		Precision:    precision,
	}, logger)
	closers = append(closers, conn.Close)
	deps.Conn = conn

	// --- Strategy engine ---
	pairs, err := cfg.Strategy.Pairs()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: strategy pairs: %w", err)
	}
	analyzer := book.NewDefaultAnalyzer(conn)
	engine := triarb.NewEngine(triarb.Config{
		Pairs:            pairs,
		HoldingAsset:     cfg.Strategy.HoldingAsset,
		MinProfitability: cfg.Strategy.MinProfitability,
		OrderAmount:      cfg.Strategy.OrderAmount,
	}, conn, analyzer, deps.Notifier, logger)
	deps.Engine = engine

	// --- Kill switch ---
	deps.Guard = risk.New(cfg.Strategy.KillSwitchEnabled, cfg.Strategy.KillSwitchRate, engine, logger)

	// --- Redis book cache (optional) ---
	var bookCache feed.CacheWriter
	if cfg.Redis.Enabled {
		redisClient, err := redisc.New(ctx, redisc.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		bookCache = redisc.NewBookCache(redisClient)
	}

	// --- Depth feed ---
	if cfg.Feed.Enabled {
		deps.Feed = feed.New(feed.Config{
			WsURL:          cfg.Feed.WsURL,
			Depth:          cfg.Feed.Depth,
			ReconnectDelay: cfg.Feed.ReconnectDelay.Duration,
			Pairs:          pairs,
		}, conn, bookCache, logger)
	}

	// --- Status server ---
	if cfg.Server.Enabled {
		deps.Server = server.New(server.Config{Port: cfg.Server.Port}, engine, logger)
	}

	return deps, cleanup, nil
}
