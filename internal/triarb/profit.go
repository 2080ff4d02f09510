package triarb

import (
	"log/slog"

	"github.com/quantverse/triarb/internal/book"
	"github.com/quantverse/triarb/internal/domain"
)

// NoOpportunityProfit is the sentinel profit percentage returned when a cycle
// is infeasible (an amount quantizes to zero or the book cannot be read). It
// is an expected, frequent outcome under thin books, not an error.
const NoOpportunityProfit = -100

// Opportunity is a transient, qualifying evaluation result: the chosen
// direction, its expected profit percentage, and the three leg amounts.
type Opportunity struct {
	Direction    Direction
	ProfitPct    float64
	OrderAmounts []float64
}

// Evaluator simulates full cycle executions against current depth without
// placing orders.
type Evaluator struct {
	conn     domain.Connector
	analyzer book.Analyzer
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator using the given connector for fill
// simulation and fee estimation and the given analyzer for depth walking.
func NewEvaluator(conn domain.Connector, analyzer book.Analyzer, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		conn:     conn,
		analyzer: analyzer,
		logger:   logger.With(slog.String("component", "profit_evaluator")),
	}
}

// Evaluate simulates the three legs of cycle starting from startAmount units
// of the holding asset and returns the expected profit percentage together
// with the concrete leg amounts. It has no side effects and is idempotent for
// unchanged inputs. An infeasible cycle yields (NoOpportunityProfit, nil).
func (ev *Evaluator) Evaluate(cycle TradingCycle, startAmount float64) (float64, []float64) {
	exchanged := startAmount
	amounts := make([]float64, 0, len(cycle.Legs))

	for i, leg := range cycle.Legs {
		amount, err := ev.analyzer.OrderAmountFromExchangedAmount(leg.Pair, leg.Side, exchanged)
		if err != nil {
			ev.logger.Debug("leg amount unavailable",
				slog.String("direction", string(cycle.Direction)),
				slog.Int("leg", i),
				slog.String("pair", leg.Pair.String()),
				slog.String("error", err.Error()),
			)
			return NoOpportunityProfit, nil
		}
		if amount == 0 {
			ev.logger.Debug("leg amount too low after quantization",
				slog.String("direction", string(cycle.Direction)),
				slog.Int("leg", i),
				slog.String("pair", leg.Pair.String()),
			)
			return NoOpportunityProfit, nil
		}
		amounts = append(amounts, amount)

		volume, err := ev.conn.SimulateExecutionVolume(leg.Pair, leg.Side, amount)
		if err != nil {
			ev.logger.Debug("fill simulation failed",
				slog.String("direction", string(cycle.Direction)),
				slog.Int("leg", i),
				slog.String("pair", leg.Pair.String()),
				slog.String("error", err.Error()),
			)
			return NoOpportunityProfit, nil
		}

		fee := ev.conn.EstimateFee(false)
		exchanged = volume - fee*volume
	}

	profit := (exchanged - startAmount) / startAmount * 100
	return profit, amounts
}
