package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRIARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRIARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Connector ──
	setStr(&cfg.Connector.Name, "TRIARB_CONNECTOR_NAME")
	setFloat64(&cfg.Connector.TakerFeeRate, "TRIARB_CONNECTOR_TAKER_FEE_RATE")
	setFloat64(&cfg.Connector.MakerFeeRate, "TRIARB_CONNECTOR_MAKER_FEE_RATE")

	// ── Strategy ──
	setStr(&cfg.Strategy.FirstPair, "TRIARB_FIRST_PAIR")
	setStr(&cfg.Strategy.SecondPair, "TRIARB_SECOND_PAIR")
	setStr(&cfg.Strategy.ThirdPair, "TRIARB_THIRD_PAIR")
	setStr(&cfg.Strategy.HoldingAsset, "TRIARB_HOLDING_ASSET")
	setFloat64(&cfg.Strategy.MinProfitability, "TRIARB_MIN_PROFITABILITY")
	setFloat64(&cfg.Strategy.OrderAmount, "TRIARB_ORDER_AMOUNT")
	setBool(&cfg.Strategy.KillSwitchEnabled, "TRIARB_KILL_SWITCH_ENABLED")
	setFloat64(&cfg.Strategy.KillSwitchRate, "TRIARB_KILL_SWITCH_RATE")
	setDuration(&cfg.Strategy.TickInterval, "TRIARB_TICK_INTERVAL")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "TRIARB_FEED_ENABLED")
	setStr(&cfg.Feed.WsURL, "TRIARB_FEED_WS_URL")
	setInt(&cfg.Feed.Depth, "TRIARB_FEED_DEPTH")
	setDuration(&cfg.Feed.ReconnectDelay, "TRIARB_FEED_RECONNECT_DELAY")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TRIARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRIARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRIARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRIARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRIARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRIARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRIARB_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TRIARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TRIARB_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRIARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRIARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRIARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRIARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "TRIARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
