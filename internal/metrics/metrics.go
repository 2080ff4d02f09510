// Package metrics registers the Prometheus instruments exported by the bot on
// the status server's /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_evaluations_total",
		Help: "Number of opportunity evaluation ticks executed",
	})

	ExpectedProfitPct = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "triarb_expected_profit_pct",
		Help: "Latest expected profit percentage per traversal direction",
	}, []string{"direction"})

	CyclesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_cycles_started_total",
		Help: "Number of arbitrage cycles started",
	})

	CyclesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_cycles_completed_total",
		Help: "Number of arbitrage cycles completed successfully",
	})

	CyclesAborted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_cycles_aborted_total",
		Help: "Number of arbitrage cycles aborted on a leg failure",
	})

	OrdersPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_orders_placed_total",
		Help: "Number of leg orders submitted to the venue",
	})

	RealizedProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_realized_profit",
		Help: "Cumulative realized profit in holding-asset units",
	})

	FeedUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triarb_feed_book_updates_total",
		Help: "Number of order-book snapshots applied from the depth feed",
	})
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal,
		ExpectedProfitPct,
		CyclesStarted,
		CyclesCompleted,
		CyclesAborted,
		OrdersPlaced,
		RealizedProfit,
		FeedUpdates,
	)
}
