package executors

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/connectors"
	"strategycoordinator/src/coordinator"
	"strategycoordinator/src/marketdata"
	"strategycoordinator/src/model"
	"strategycoordinator/src/portfolio"
	"strategycoordinator/src/sizing"
)

// executionRecorder journals one row per broker execution attempt. A nil
// recorder disables journaling.
type executionRecorder interface {
	Create(ctx context.Context, row *model.ExecutionLog) error
}

// Engine drives the trading cycle: refresh market data, collect signals,
// size them, gate them against the ledger and hand them to the broker.
// All steady-state mutation of the ledger happens from here, on one
// goroutine.
type Engine struct {
	log     *logger.Entry
	coord   *coordinator.Coordinator
	ledger  *portfolio.Ledger
	market  *marketdata.Manager
	broker  connectors.BrokerExecutor
	journal executionRecorder
	symbols []string
	dryRun  bool
}

func NewEngine(
	log *logger.Entry,
	coord *coordinator.Coordinator,
	ledger *portfolio.Ledger,
	market *marketdata.Manager,
	broker connectors.BrokerExecutor,
	journal executionRecorder,
	symbols []string,
	dryRun bool,
) *Engine {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Engine{
		log:     log,
		coord:   coord,
		ledger:  ledger,
		market:  market,
		broker:  broker,
		journal: journal,
		symbols: symbols,
		dryRun:  dryRun,
	}
}

// StartLoop connects the broker and runs one cycle per tick until the
// context is canceled. A failed cycle is logged and the loop keeps going;
// only cancellation stops it.
func (e *Engine) StartLoop(ctx context.Context, period time.Duration) error {
	if err := e.broker.Connect(); err != nil {
		e.log.WithError(err).Error("broker connect failed")
		return err
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	e.log.WithFields(logger.Fields{
		"period":  period,
		"symbols": e.symbols,
		"dry_run": e.dryRun,
	}).Info("trading loop started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info("trading loop stopped")
			return nil

		case <-ticker.C:
			if err := e.RunCycle(ctx); err != nil {
				e.log.WithError(err).Error("cycle failed")
			}
		}
	}
}

// RunCycle executes one full trading cycle. A failure refreshing the
// account aborts the cycle because every sizing decision depends on the
// account value; per-symbol and per-strategy failures are contained.
func (e *Engine) RunCycle(ctx context.Context) error {
	account, err := e.broker.GetAccountInfo()
	if err != nil {
		e.log.WithError(err).Error("account refresh failed, skipping cycle")
		return err
	}
	e.ledger.UpdateAccountValue(account.TotalValue)

	for _, symbol := range e.symbols {
		if err := e.market.UpdateSymbolData(ctx, symbol); err != nil {
			e.log.WithError(err).WithField("symbol", symbol).
				Warn("market data refresh failed, skipping symbol")
			continue
		}

		bars := e.market.GetSymbolData(symbol)
		signals := e.coord.GenerateSignals(symbol, bars)

		for _, id := range sortedKeys(signals) {
			signal := signals[id]
			if signal.IsHold() {
				continue
			}
			e.executeSignal(ctx, id, symbol, signal, account)
		}
	}

	return nil
}

// executeSignal sizes and submits one actionable signal. Every outcome,
// including skips and rejections, lands in the journal.
func (e *Engine) executeSignal(
	ctx context.Context,
	strategyID, symbol string,
	signal model.TradingSignal,
	account model.AccountInfo,
) {
	log := e.log.WithFields(logger.Fields{
		"strategy_id": strategyID,
		"symbol":      symbol,
		"signal":      signal.Type,
	})

	if signal.Price.LessThanOrEqual(decimal.Zero) {
		log.Warn("signal carries no usable price, skipping")
		e.record(ctx, strategyID, symbol, signal, decimal.Zero, nil,
			model.ExecutionStatusSkipped, "signal carries no usable price", nil)
		return
	}

	caps, err := e.broker.GetCapabilities(symbol)
	if err != nil {
		log.WithError(err).Error("capability lookup failed")
		e.record(ctx, strategyID, symbol, signal, decimal.Zero, nil,
			model.ExecutionStatusError, "capability lookup failed", err)
		return
	}

	intent, ok, reason := e.resolveIntent(strategyID, symbol, signal)
	if !ok {
		log.WithField("reason", reason).Info("skipping signal")
		e.record(ctx, strategyID, symbol, signal, decimal.Zero, nil,
			model.ExecutionStatusSkipped, reason, nil)
		return
	}

	// The cash clamp binds buys to the strategy's uncommitted capital.
	// Sells return capital, so the clamp must not fire for them.
	availableCash := account.TotalValue
	if signal.IsBuySide() {
		capital, registered := e.ledger.AvailableCapital(strategyID)
		if !registered {
			log.Warn("strategy missing from ledger, skipping")
			e.record(ctx, strategyID, symbol, signal, decimal.Zero, nil,
				model.ExecutionStatusSkipped, "strategy not registered with ledger", nil)
			return
		}
		availableCash = capital
	}

	quantity, reasoning, err := sizing.CalculatePositionSize(
		intent, signal.Price, caps, account.TotalValue, availableCash)
	if err != nil {
		log.WithError(err).Error("position sizing failed")
		e.record(ctx, strategyID, symbol, signal, decimal.Zero, reasoning,
			model.ExecutionStatusError, "position sizing failed", err)
		return
	}
	if quantity.IsZero() {
		log.WithField("reasoning", reasoning).Info("sizer rejected signal")
		e.record(ctx, strategyID, symbol, signal, decimal.Zero, reasoning,
			model.ExecutionStatusRejected, "rejected by sizing constraints", nil)
		return
	}

	qty := quantity.Abs()
	if allowed, why := e.gate(strategyID, symbol, signal, qty); !allowed {
		log.WithField("reason", why).Info("ledger rejected signal")
		e.record(ctx, strategyID, symbol, signal, qty, reasoning,
			model.ExecutionStatusRejected, why, nil)
		return
	}

	if e.dryRun {
		log.WithField("quantity", qty).Info("dry run, order not submitted")
		e.record(ctx, strategyID, symbol, signal, qty, reasoning,
			model.ExecutionStatusSkipped, "dry run", nil)
		return
	}

	submitted := qty
	if signal.IsSellSide() {
		submitted = qty.Neg()
	}

	result, err := e.broker.ExecuteSignal(symbol, signal, submitted)
	if err != nil {
		log.WithError(err).Error("order submission failed")
		e.record(ctx, strategyID, symbol, signal, qty, reasoning,
			model.ExecutionStatusError, "order submission failed", err)
		return
	}
	if !result.Success {
		log.WithField("message", result.Message).Warn("order rejected by broker")
		e.record(ctx, strategyID, symbol, signal, qty, reasoning,
			model.ExecutionStatusRejected, result.Message, nil)
		return
	}

	e.settle(strategyID, symbol, signal, result)

	log.WithFields(logger.Fields{
		"order_id": result.OrderID,
		"quantity": result.FilledQuantity,
		"price":    result.FilledPrice,
	}).Info("order filled")

	row := e.buildRow(strategyID, symbol, signal, result.FilledQuantity, reasoning,
		model.ExecutionStatusFilled, result.Message, nil)
	row.BrokerOrderID = result.OrderID
	now := time.Now().UTC()
	row.ExecutedAt = &now
	if fp := result.FilledPrice.InexactFloat64(); fp > 0 {
		row.Price = &fp
		row.Notional = result.FilledQuantity.Abs().InexactFloat64() * fp
	}
	e.persist(ctx, row)
}

// resolveIntent picks the sizing intent for the signal. Sell-side signals
// without an explicit size close the ledger position in full.
func (e *Engine) resolveIntent(strategyID, symbol string, signal model.TradingSignal) (model.SizingIntent, bool, string) {
	if signal.Size != nil {
		return *signal.Size, true, ""
	}

	if signal.IsSellSide() {
		pos, held := e.ledger.Position(strategyID, symbol)
		if !held || !pos.Quantity.IsPositive() {
			return model.SizingIntent{}, false, "no position to close"
		}
		return model.SizingIntent{Kind: model.SizingUnits, Value: pos.Quantity}, true, ""
	}

	return model.SizingIntent{}, false, "buy signal without sizing intent"
}

func (e *Engine) gate(strategyID, symbol string, signal model.TradingSignal, qty decimal.Decimal) (bool, string) {
	if signal.IsBuySide() {
		return e.ledger.CanBuy(strategyID, symbol, qty.Mul(signal.Price))
	}
	return e.ledger.CanSell(strategyID, symbol, &qty)
}

// settle pushes the confirmed fill into the ledger. Only confirmed fills
// mutate capital and positions.
func (e *Engine) settle(strategyID, symbol string, signal model.TradingSignal, result model.OrderResult) {
	filled := result.FilledQuantity.Abs()
	price := result.FilledPrice
	if price.LessThanOrEqual(decimal.Zero) {
		price = signal.Price
	}
	notional := filled.Mul(price)

	var err error
	if signal.IsBuySide() {
		err = e.ledger.RecordBuy(strategyID, symbol, notional, &filled)
	} else {
		err = e.ledger.RecordSell(strategyID, symbol, notional, &filled)
	}
	if err != nil {
		e.log.WithError(err).WithFields(logger.Fields{
			"strategy_id": strategyID,
			"symbol":      symbol,
		}).Error("ledger update failed after fill")
	}
}

func (e *Engine) record(
	ctx context.Context,
	strategyID, symbol string,
	signal model.TradingSignal,
	qty decimal.Decimal,
	reasoning []string,
	status, reason string,
	cause error,
) {
	e.persist(ctx, e.buildRow(strategyID, symbol, signal, qty, reasoning, status, reason, cause))
}

func (e *Engine) buildRow(
	strategyID, symbol string,
	signal model.TradingSignal,
	qty decimal.Decimal,
	reasoning []string,
	status, reason string,
	cause error,
) *model.ExecutionLog {
	side := "buy"
	if signal.IsSellSide() {
		side = "sell"
	}

	row := &model.ExecutionLog{
		StrategyID: strategyID,
		Symbol:     symbol,
		Side:       side,
		SignalType: string(signal.Type),
		Quantity:   qty.Abs().InexactFloat64(),
		Status:     status,
		Reason:     reason,
		Sizing:     joinReasoning(reasoning),
	}
	if signal.Price.IsPositive() {
		p := signal.Price.InexactFloat64()
		row.Price = &p
		row.Notional = qty.Abs().InexactFloat64() * p
	}
	if cause != nil {
		msg := cause.Error()
		row.ErrorMessage = &msg
	}
	return row
}

func (e *Engine) persist(ctx context.Context, row *model.ExecutionLog) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Create(ctx, row); err != nil {
		e.log.WithError(err).Warn("failed to journal execution")
	}
}

func joinReasoning(reasoning []string) string {
	out := ""
	for i, r := range reasoning {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

func sortedKeys(m map[string]model.TradingSignal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
