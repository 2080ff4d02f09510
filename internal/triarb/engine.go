package triarb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quantverse/triarb/internal/book"
	"github.com/quantverse/triarb/internal/domain"
	"github.com/quantverse/triarb/internal/metrics"
)

// Status enumerates the engine's state machine.
type Status string

const (
	// StatusUninitialized: cycles not derived yet; the first tick runs
	// initialization.
	StatusUninitialized Status = "UNINITIALIZED"
	// StatusReady: idle, evaluating opportunities on every tick.
	StatusReady Status = "READY"
	// StatusExecuting: a cycle is in flight; exactly one order outstanding.
	StatusExecuting Status = "EXECUTING"
	// StatusFaulted: a leg failed and pending state was discarded; the next
	// tick recovers to READY.
	StatusFaulted Status = "FAULTED"
	// StatusDisabled: terminal until external restart (failed initialization
	// or a tripped kill switch).
	StatusDisabled Status = "DISABLED"
)

// Config holds the strategy parameters the engine operates on.
type Config struct {
	Pairs            [3]domain.Pair
	HoldingAsset     string
	MinProfitability float64 // percent
	OrderAmount      float64 // holding-asset units committed per cycle
}

// Notifier receives operator notifications for cycle outcomes. Satisfied by
// notify.Notifier; may be nil.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Engine is the sequential, event-driven execution state machine. Ticks and
// order events are serialized through one mutex: no evaluation runs while a
// cycle is executing and no two notifications are applied concurrently. At
// most one cycle, and within it one outstanding order, exists at a time.
type Engine struct {
	cfg      Config
	conn     domain.Connector
	eval     *Evaluator
	notifier Notifier
	logger   *slog.Logger

	forward TradingCycle
	reverse TradingCycle

	mu             sync.Mutex
	status         Status
	pending        []domain.OrderCandidate
	legIndex       int
	activeOrderID  string
	orderIDs       []string
	direction      Direction
	startBalance   float64
	totalProfit    float64
	totalProfitPct float64
	lastFault      string
}

// NewEngine creates an Engine in the UNINITIALIZED state. notifier may be nil.
func NewEngine(cfg Config, conn domain.Connector, analyzer book.Analyzer, notifier Notifier, logger *slog.Logger) *Engine {
	logger = logger.With(slog.String("component", "execution_engine"))
	return &Engine{
		cfg:      cfg,
		conn:     conn,
		eval:     NewEvaluator(conn, analyzer, logger),
		notifier: notifier,
		logger:   logger,
		status:   StatusUninitialized,
	}
}

// Init validates the configured pairs and derives both trading cycles. A
// configuration error is fatal: the engine becomes DISABLED and stays there
// until externally restarted.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initLocked()
}

func (e *Engine) initLocked() error {
	forward, reverse, err := BuildCycles(e.cfg.Pairs, e.cfg.HoldingAsset)
	if err != nil {
		e.status = StatusDisabled
		e.lastFault = err.Error()
		return fmt.Errorf("triarb: init: %w", err)
	}
	e.forward = forward
	e.reverse = reverse
	e.status = StatusReady
	e.logger.Info("strategy initialized",
		slog.String("holding_asset", e.cfg.HoldingAsset),
		slog.String("forward", fmt.Sprintf("%v", forward.Legs)),
		slog.String("reverse", fmt.Sprintf("%v", reverse.Legs)),
	)
	return nil
}

// OnTick is the periodic evaluation entry point. It initializes once, recovers
// a faulted engine, skips while a cycle is executing or funds are short, and
// otherwise evaluates both directions and starts a qualifying cycle.
func (e *Engine) OnTick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusUninitialized:
		if err := e.initLocked(); err != nil {
			e.logger.Error("initialization failed", slog.String("error", err.Error()))
		}
		return
	case StatusFaulted:
		// Recovery tick: no evaluation until the next one.
		e.status = StatusReady
		e.logger.Info("recovered from fault, ready for new cycles")
		return
	case StatusExecuting, StatusDisabled:
		return
	}

	balance, err := e.conn.AvailableBalance(e.cfg.HoldingAsset)
	if err != nil {
		e.logger.Warn("balance query failed", slog.String("error", err.Error()))
		return
	}
	if balance < e.cfg.OrderAmount {
		// Not an error, just a skip condition.
		e.logger.Debug("holding balance below order amount, skipping evaluation",
			slog.Float64("balance", balance),
			slog.Float64("order_amount", e.cfg.OrderAmount),
		)
		return
	}

	opp := e.findOpportunityLocked()
	if opp == nil {
		return
	}
	e.startCycleLocked(ctx, *opp, balance)
}

// findOpportunityLocked evaluates both directions and returns the better one
// clearing the profitability threshold, preferring forward on a tie.
func (e *Engine) findOpportunityLocked() *Opportunity {
	metrics.EvaluationsTotal.Inc()

	fwdProfit, fwdAmounts := e.eval.Evaluate(e.forward, e.cfg.OrderAmount)
	revProfit, revAmounts := e.eval.Evaluate(e.reverse, e.cfg.OrderAmount)

	metrics.ExpectedProfitPct.WithLabelValues(string(DirectionForward)).Set(fwdProfit)
	metrics.ExpectedProfitPct.WithLabelValues(string(DirectionReverse)).Set(revProfit)

	e.logger.Debug("direction profits",
		slog.Float64("forward_pct", fwdProfit),
		slog.Float64("reverse_pct", revProfit),
	)

	switch {
	case fwdProfit >= e.cfg.MinProfitability && fwdProfit >= revProfit:
		return &Opportunity{Direction: DirectionForward, ProfitPct: fwdProfit, OrderAmounts: fwdAmounts}
	case revProfit >= e.cfg.MinProfitability:
		return &Opportunity{Direction: DirectionReverse, ProfitPct: revProfit, OrderAmounts: revAmounts}
	default:
		return nil
	}
}

// startCycleLocked builds the three order candidates and submits the first
// leg. A candidate quantizing to zero aborts the start without a fault: the
// engine stays READY and the partial candidate list is discarded.
func (e *Engine) startCycleLocked(ctx context.Context, opp Opportunity, balance float64) {
	cycle := e.cycleFor(opp.Direction)

	candidates := make([]domain.OrderCandidate, 0, len(cycle.Legs))
	for i, leg := range cycle.Legs {
		c, ok := e.buildCandidateLocked(leg, opp.OrderAmounts[i])
		if !ok {
			e.logger.Info("candidate amount too low, missed opportunity",
				slog.String("pair", leg.Pair.String()),
				slog.String("direction", string(opp.Direction)),
			)
			return
		}
		candidates = append(candidates, c)
	}

	e.pending = candidates
	e.legIndex = 0
	e.orderIDs = nil
	e.activeOrderID = ""
	e.direction = opp.Direction
	e.startBalance = balance
	e.status = StatusExecuting
	metrics.CyclesStarted.Inc()

	e.logger.Info("starting arbitrage cycle",
		slog.String("direction", string(opp.Direction)),
		slog.Float64("expected_profit_pct", opp.ProfitPct),
	)

	e.placeNextLegLocked(ctx)
}

// buildCandidateLocked derives a quantized market-order candidate from current
// book state. ok is false when the quantized amount is zero.
func (e *Engine) buildCandidateLocked(leg Leg, amount float64) (domain.OrderCandidate, bool) {
	price, err := e.conn.EstimateExecutionPrice(leg.Pair, leg.Side, amount)
	if err != nil {
		e.logger.Warn("execution price estimate failed",
			slog.String("pair", leg.Pair.String()),
			slog.String("error", err.Error()),
		)
		return domain.OrderCandidate{}, false
	}

	quantizedPrice := e.conn.QuantizePrice(leg.Pair, price)
	quantizedAmount := e.conn.QuantizeAmount(leg.Pair, amount)
	if quantizedAmount == 0 {
		return domain.OrderCandidate{}, false
	}

	return domain.OrderCandidate{
		Pair:    leg.Pair,
		Side:    leg.Side,
		Type:    domain.OrderTypeMarket,
		IsMaker: false,
		Amount:  quantizedAmount,
		Price:   quantizedPrice,
	}, true
}

// placeNextLegLocked submits the current leg, or finishes the cycle when none
// remain. The candidate passes the venue's all-or-none budget adjustment
// first; any shortfall is a leg failure, never a partial placement.
func (e *Engine) placeNextLegLocked(ctx context.Context) {
	if e.legIndex >= len(e.pending) {
		e.completeCycleLocked(ctx)
		return
	}

	candidate := e.pending[e.legIndex]
	adjusted := e.conn.AdjustCandidateAllOrNone(candidate)
	if adjusted.Amount == 0 || adjusted.Amount != candidate.Amount {
		e.faultLocked(ctx, fmt.Sprintf("budget check rejected leg %d on %s", e.legIndex, candidate.Pair))
		return
	}

	orderID, err := e.conn.SubmitOrder(ctx, adjusted)
	if err != nil {
		e.faultLocked(ctx, fmt.Sprintf("leg %d submission on %s: %v", e.legIndex, candidate.Pair, err))
		return
	}

	e.activeOrderID = orderID
	e.orderIDs = append(e.orderIDs, orderID)
	metrics.OrdersPlaced.Inc()
	e.logger.Info("leg order placed",
		slog.Int("leg", e.legIndex),
		slog.String("order_id", orderID),
		slog.String("pair", candidate.Pair.String()),
		slog.String("side", string(candidate.Side)),
		slog.Float64("amount", adjusted.Amount),
		slog.Float64("price", adjusted.Price),
	)
}

// completeCycleLocked records the realized profit as the holding-asset balance
// delta against the balance committed at cycle start and returns to READY.
func (e *Engine) completeCycleLocked(ctx context.Context) {
	finalBalance, err := e.conn.AvailableBalance(e.cfg.HoldingAsset)
	if err != nil {
		e.logger.Warn("post-cycle balance query failed", slog.String("error", err.Error()))
		finalBalance = e.startBalance
	}

	profit := finalBalance - e.startBalance
	var cyclePct float64
	if e.startBalance > 0 {
		cyclePct = profit / e.startBalance * 100
	}
	e.totalProfit += profit
	e.totalProfitPct = e.totalProfit / e.cfg.OrderAmount * 100

	direction := e.direction
	e.resetLocked()
	e.status = StatusReady

	metrics.CyclesCompleted.Inc()
	metrics.RealizedProfit.Set(e.totalProfit)

	e.logger.Info("arbitrage cycle completed",
		slog.String("direction", string(direction)),
		slog.Float64("profit", profit),
		slog.Float64("profit_pct", cyclePct),
		slog.Float64("total_profit", e.totalProfit),
	)
	e.notify(ctx, "cycle_completed", "Arbitrage cycle completed",
		fmt.Sprintf("direction=%s profit=%.8f %s (%.4f%%)", direction, profit, e.cfg.HoldingAsset, cyclePct))
}

// HandleEvent applies one asynchronous order notification. Events that do not
// correlate with the outstanding order are ignored; fills are informational
// and never drive a transition.
func (e *Engine) HandleEvent(ctx context.Context, ev domain.OrderEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeOrderID == "" || ev.OrderID != e.activeOrderID {
		return
	}

	switch ev.Type {
	case domain.OrderEventCreated:
		e.logger.Debug("order created",
			slog.String("order_id", ev.OrderID),
			slog.String("pair", ev.Pair.String()),
		)
	case domain.OrderEventFilled:
		e.logger.Info("order filled",
			slog.String("order_id", ev.OrderID),
			slog.String("pair", ev.Pair.String()),
			slog.Float64("amount", ev.Amount),
			slog.Float64("price", ev.Price),
		)
	case domain.OrderEventCompleted:
		e.logger.Info("leg completed",
			slog.Int("leg", e.legIndex),
			slog.String("order_id", ev.OrderID),
		)
		e.activeOrderID = ""
		e.legIndex++
		e.placeNextLegLocked(ctx)
	case domain.OrderEventFailed:
		e.faultLocked(ctx, fmt.Sprintf("order %s failed on %s: %s", ev.OrderID, ev.Pair, ev.Reason))
	}
}

// faultLocked abandons the in-flight cycle wholesale: pending state is
// discarded, nothing is retried, and the next tick recovers to READY.
func (e *Engine) faultLocked(ctx context.Context, reason string) {
	e.logger.Error("cycle aborted", slog.String("reason", reason))
	e.resetLocked()
	e.status = StatusFaulted
	e.lastFault = reason
	metrics.CyclesAborted.Inc()
	e.notify(ctx, "cycle_aborted", "Arbitrage cycle aborted", reason)
}

func (e *Engine) resetLocked() {
	e.pending = nil
	e.legIndex = 0
	e.activeOrderID = ""
	e.orderIDs = nil
	e.direction = ""
	e.startBalance = 0
}

// Stop cancels the outstanding order, if any, and discards pending state,
// returning the engine to a quiescent READY without completing the cycle.
// Cancellation is best-effort: local state is cleared without waiting for the
// venue to confirm.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeOrderID != "" {
		if err := e.conn.CancelOrder(ctx, e.activeOrderID); err != nil {
			e.logger.Warn("cancel outstanding order failed",
				slog.String("order_id", e.activeOrderID),
				slog.String("error", err.Error()),
			)
		} else {
			e.logger.Info("cancelled outstanding order", slog.String("order_id", e.activeOrderID))
		}
	}
	e.resetLocked()
	if e.status == StatusExecuting || e.status == StatusFaulted {
		e.status = StatusReady
	}
}

// Disable puts the engine in the terminal DISABLED state (kill switch).
func (e *Engine) Disable(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusDisabled
	e.lastFault = reason
	e.logger.Warn("engine disabled", slog.String("reason", reason))
}

func (e *Engine) cycleFor(dir Direction) TradingCycle {
	if dir == DirectionReverse {
		return e.reverse
	}
	return e.forward
}

// notify dispatches asynchronously so network-bound senders never block the
// tick/event path.
func (e *Engine) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	go func() {
		if err := e.notifier.Notify(context.WithoutCancel(ctx), event, title, message); err != nil {
			e.logger.Warn("notification failed", slog.String("error", err.Error()))
		}
	}()
}
