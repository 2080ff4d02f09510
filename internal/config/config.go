// Package config defines the top-level configuration for the triangular
// arbitrage bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantverse/triarb/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRIARB_* environment variables.
type Config struct {
	Connector ConnectorConfig `toml:"connector"`
	Strategy  StrategyConfig  `toml:"strategy"`
	Feed      FeedConfig      `toml:"feed"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	LogLevel  string          `toml:"log_level"`
}

// ConnectorConfig holds venue parameters. The paper connector simulates fills
// locally; balances and per-pair precision rules seed its state.
type ConnectorConfig struct {
	Name         string                   `toml:"name"`
	TakerFeeRate float64                  `toml:"taker_fee_rate"` // fraction, e.g. 0.001
	MakerFeeRate float64                  `toml:"maker_fee_rate"`
	Balances     map[string]float64       `toml:"balances"`
	Precision    map[string]PrecisionRule `toml:"precision"` // keyed by BASE-QUOTE
}

// PrecisionRule is a pair's quantization rule: amounts and prices are floored
// to their step; amounts below MinAmount quantize to zero.
type PrecisionRule struct {
	AmountStep float64 `toml:"amount_step"`
	PriceStep  float64 `toml:"price_step"`
	MinAmount  float64 `toml:"min_amount"`
}

// StrategyConfig holds the triangular arbitrage strategy parameters.
type StrategyConfig struct {
	FirstPair         string   `toml:"first_pair"`
	SecondPair        string   `toml:"second_pair"`
	ThirdPair         string   `toml:"third_pair"`
	HoldingAsset      string   `toml:"holding_asset"`
	MinProfitability  float64  `toml:"min_profitability"` // percent
	OrderAmount       float64  `toml:"order_amount"`      // holding-asset units
	KillSwitchEnabled bool     `toml:"kill_switch_enabled"`
	KillSwitchRate    float64  `toml:"kill_switch_rate"` // percent, typically negative
	TickInterval      duration `toml:"tick_interval"`
}

// Pairs parses the three configured pair identifiers.
func (s StrategyConfig) Pairs() ([3]domain.Pair, error) {
	var out [3]domain.Pair
	for i, raw := range []string{s.FirstPair, s.SecondPair, s.ThirdPair} {
		p, err := domain.ParsePair(raw)
		if err != nil {
			return out, err
		}
		out[i] = p
	}
	return out, nil
}

// FeedConfig holds the exchange depth-stream parameters.
type FeedConfig struct {
	Enabled        bool     `toml:"enabled"`
	WsURL          string   `toml:"ws_url"`
	Depth          int      `toml:"depth"`
	ReconnectDelay duration `toml:"reconnect_delay"`
}

// RedisConfig holds Redis connection parameters for the book snapshot cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds status HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Connector: ConnectorConfig{
			Name:         "paper",
			TakerFeeRate: 0.001,
			MakerFeeRate: 0.001,
			Balances: map[string]float64{
				"USDT": 1000,
			},
			Precision: map[string]PrecisionRule{},
		},
		Strategy: StrategyConfig{
			FirstPair:         "ADA-USDT",
			SecondPair:        "ADA-BTC",
			ThirdPair:         "BTC-USDT",
			HoldingAsset:      "USDT",
			MinProfitability:  0.5,
			OrderAmount:       20,
			KillSwitchEnabled: true,
			KillSwitchRate:    -2,
			TickInterval:      duration{time.Second},
		},
		Feed: FeedConfig{
			Enabled:        true,
			WsURL:          "wss://stream.binance.com:9443/stream",
			Depth:          20,
			ReconnectDelay: duration{5 * time.Second},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Notify: NotifyConfig{
			Events: []string{"cycle_completed", "cycle_aborted", "kill_switch"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Connector.Name == "" {
		errs = append(errs, "connector: name must not be empty")
	}
	if c.Connector.TakerFeeRate < 0 || c.Connector.TakerFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("connector: taker_fee_rate must be in [0, 1), got %g", c.Connector.TakerFeeRate))
	}
	for asset, bal := range c.Connector.Balances {
		if bal < 0 {
			errs = append(errs, fmt.Sprintf("connector: balance for %s must not be negative", asset))
		}
	}

	if _, err := c.Strategy.Pairs(); err != nil {
		errs = append(errs, fmt.Sprintf("strategy: %v", err))
	}
	if c.Strategy.HoldingAsset == "" {
		errs = append(errs, "strategy: holding_asset must not be empty")
	}
	if c.Strategy.OrderAmount <= 0 {
		errs = append(errs, "strategy: order_amount must be > 0")
	}
	if c.Strategy.TickInterval.Duration <= 0 {
		errs = append(errs, "strategy: tick_interval must be > 0")
	}
	if c.Strategy.KillSwitchEnabled && c.Strategy.KillSwitchRate >= 0 {
		errs = append(errs, "strategy: kill_switch_rate must be negative when the kill switch is enabled")
	}

	if c.Feed.Enabled {
		if c.Feed.WsURL == "" {
			errs = append(errs, "feed: ws_url must not be empty when enabled")
		}
		if c.Feed.Depth <= 0 {
			errs = append(errs, "feed: depth must be > 0")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
