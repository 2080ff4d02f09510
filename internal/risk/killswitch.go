// Package risk implements the drawdown kill switch that permanently disables
// trading when cumulative performance falls below a configured floor.
package risk

import (
	"log/slog"
)

// PerformanceSource exposes the engine's cumulative profit percentage,
// measured against the configured order amount.
type PerformanceSource interface {
	TotalProfitPct() float64
}

// KillSwitch trips once the cumulative profit percentage drops to or below
// the configured rate. A tripped switch never resets.
type KillSwitch struct {
	enabled bool
	rate    float64 // percent, typically negative
	source  PerformanceSource
	logger  *slog.Logger
	tripped bool
}

// New creates a KillSwitch. rate is the profit-percentage floor; trading stops
// when performance reaches it.
func New(enabled bool, rate float64, source PerformanceSource, logger *slog.Logger) *KillSwitch {
	return &KillSwitch{
		enabled: enabled,
		rate:    rate,
		source:  source,
		logger:  logger.With(slog.String("component", "killswitch")),
	}
}

// Check evaluates the floor and returns true exactly once, on the tick the
// switch trips. Subsequent calls return false.
func (k *KillSwitch) Check() bool {
	if !k.enabled || k.tripped {
		return false
	}

	pct := k.source.TotalProfitPct()
	if pct > k.rate {
		return false
	}

	k.tripped = true
	k.logger.Error("kill switch tripped",
		slog.Float64("total_profit_pct", pct),
		slog.Float64("rate", k.rate))
	return true
}

// Tripped reports whether the switch has fired.
func (k *KillSwitch) Tripped() bool {
	return k.tripped
}
