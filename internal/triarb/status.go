package triarb

import (
	"fmt"
	"strings"
)

// StatusReport is a point-in-time snapshot of the engine for the status
// surface (HTTP API, kill switch, logs).
type StatusReport struct {
	Status         Status    `json:"status"`
	Direction      Direction `json:"direction,omitempty"`
	LegIndex       int       `json:"leg_index"`
	ActiveOrderID  string    `json:"active_order_id,omitempty"`
	PlacedOrderIDs []string  `json:"placed_order_ids,omitempty"`
	TotalProfit    float64   `json:"total_profit"`
	TotalProfitPct float64   `json:"total_profit_pct"`
	LastFault      string    `json:"last_fault,omitempty"`
}

// Snapshot returns a consistent copy of the engine's observable state.
func (e *Engine) Snapshot() StatusReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, len(e.orderIDs))
	copy(ids, e.orderIDs)

	return StatusReport{
		Status:         e.status,
		Direction:      e.direction,
		LegIndex:       e.legIndex,
		ActiveOrderID:  e.activeOrderID,
		PlacedOrderIDs: ids,
		TotalProfit:    e.totalProfit,
		TotalProfitPct: e.totalProfitPct,
		LastFault:      e.lastFault,
	}
}

// TotalProfitPct returns the cumulative profit percentage relative to the
// configured order amount.
func (e *Engine) TotalProfitPct() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalProfitPct
}

// Status returns the current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// FormatStatus renders a human-readable multi-line status summary.
func (e *Engine) FormatStatus() string {
	snap := e.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", snap.Status)
	if snap.Status == StatusExecuting {
		fmt.Fprintf(&b, "Current leg index: %d\n", snap.LegIndex)
		if snap.ActiveOrderID != "" {
			fmt.Fprintf(&b, "Active order ID: %s\n", snap.ActiveOrderID)
		}
	}
	if snap.LastFault != "" {
		fmt.Fprintf(&b, "Last fault: %s\n", snap.LastFault)
	}
	fmt.Fprintf(&b, "Total profit: %.8f %s\n", snap.TotalProfit, e.cfg.HoldingAsset)
	fmt.Fprintf(&b, "Total profit percentage: %.4f%%", snap.TotalProfitPct)
	return b.String()
}
