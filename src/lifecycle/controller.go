package lifecycle

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/coordinator"
	"strategycoordinator/src/model"
	"strategycoordinator/src/strategies"
)

// Result is the outcome of one lifecycle operation. Failures never
// propagate as panics or errors past the controller boundary; callers
// must check Success.
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

func failure(reason string) Result { return Result{Reason: reason} }
func success(reason string) Result { return Result{Success: true, Reason: reason} }

// signalCoordinator is the slice of the coordinator the controller needs.
type signalCoordinator interface {
	AddStrategyRuntime(config model.StrategyConfig, extractor coordinator.Extractor) error
	RemoveStrategyRuntime(strategyID string) error
	PauseStrategy(strategyID string) error
	ResumeStrategy(strategyID string) error
}

// capitalLedger is the slice of the portfolio ledger the controller needs.
type capitalLedger interface {
	AddStrategyRuntime(strategyID string, percentage decimal.Decimal) error
	RemoveStrategyRuntime(strategyID string, liquidate bool) error
	RebalanceAllocations(weights map[string]decimal.Decimal) error
}

// extractorFactory resolves a strategy source reference into a bound
// extractor.
type extractorFactory interface {
	Create(name string, params map[string]string) (strategies.StrategyExtractor, error)
}

// eventRecorder journals lifecycle outcomes. Optional; a nil recorder
// disables journaling.
type eventRecorder interface {
	Create(ctx context.Context, event *model.LifecycleEvent) error
}

// Controller performs hot add/remove/pause/resume/rebalance of strategies
// while the trading loop is live, composing the signal coordinator and
// the portfolio ledger with compensating rollback where a multi-step
// operation fails halfway.
type Controller struct {
	log         *logger.Entry
	coordinator signalCoordinator
	ledger      capitalLedger
	registry    extractorFactory
	events      eventRecorder
}

func NewController(
	log *logger.Entry,
	coord signalCoordinator,
	ledger capitalLedger,
	registry extractorFactory,
	events eventRecorder,
) *Controller {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Controller{
		log:         log,
		coordinator: coord,
		ledger:      ledger,
		registry:    registry,
		events:      events,
	}
}

// Deploy validates that the strategy source resolves to an extractor,
// registers it with the coordinator and then the ledger. A ledger failure
// rolls the coordinator registration back: two-phase commit with manual
// compensation, not a transaction primitive.
func (c *Controller) Deploy(ctx context.Context, config model.StrategyConfig) (result Result) {
	defer c.guard("deploy", &result)
	defer func() { c.record(ctx, "deploy", config.StrategyID, result) }()

	extractor, err := c.registry.Create(config.Extractor, config.Params)
	if err != nil {
		c.log.WithError(err).WithField("strategy_id", config.StrategyID).
			Error("deploy: extractor resolution failed")
		return failure(fmt.Sprintf("extractor %s: %v", config.Extractor, err))
	}

	if config.LookbackPeriod <= 0 {
		config.LookbackPeriod = extractor.Lookback()
	}

	if err := c.coordinator.AddStrategyRuntime(config, extractor); err != nil {
		c.log.WithError(err).WithField("strategy_id", config.StrategyID).
			Error("deploy: coordinator registration failed")
		return failure(err.Error())
	}

	if err := c.ledger.AddStrategyRuntime(config.StrategyID, config.Allocation); err != nil {
		// compensate: the coordinator registration must not survive
		if rbErr := c.coordinator.RemoveStrategyRuntime(config.StrategyID); rbErr != nil {
			c.log.WithError(rbErr).WithField("strategy_id", config.StrategyID).
				Error("deploy: rollback of coordinator registration failed")
		}
		c.log.WithError(err).WithField("strategy_id", config.StrategyID).
			Error("deploy: ledger registration failed, coordinator rolled back")
		return failure(err.Error())
	}

	c.log.WithFields(logger.Fields{
		"strategy_id": config.StrategyID,
		"extractor":   config.Extractor,
		"allocation":  config.Allocation,
		"lookback":    config.LookbackPeriod,
	}).Info("strategy deployed")

	return success(fmt.Sprintf("strategy %s deployed", config.StrategyID))
}

// Undeploy removes the strategy from the coordinator first, which stops
// new signals immediately, then from the ledger. When liquidate is set
// the caller issues closing orders before or as part of this call; the
// ledger removal itself never generates broker orders.
func (c *Controller) Undeploy(ctx context.Context, strategyID string, liquidate bool) (result Result) {
	defer c.guard("undeploy", &result)
	defer func() { c.record(ctx, "undeploy", strategyID, result) }()

	if err := c.coordinator.RemoveStrategyRuntime(strategyID); err != nil {
		c.log.WithError(err).WithField("strategy_id", strategyID).
			Error("undeploy: coordinator removal failed")
		return failure(err.Error())
	}

	if err := c.ledger.RemoveStrategyRuntime(strategyID, liquidate); err != nil {
		// signals are already stopped; surface the inconsistency instead
		// of re-registering a half-dead strategy
		c.log.WithError(err).WithField("strategy_id", strategyID).
			Error("undeploy: ledger removal failed after coordinator removal")
		return failure(err.Error())
	}

	c.log.WithFields(logger.Fields{
		"strategy_id": strategyID,
		"liquidate":   liquidate,
	}).Info("strategy undeployed")

	return success(fmt.Sprintf("strategy %s undeployed", strategyID))
}

// Pause delegates to the coordinator; the ledger allocation is retained.
func (c *Controller) Pause(ctx context.Context, strategyID string) (result Result) {
	defer c.guard("pause", &result)
	defer func() { c.record(ctx, "pause", strategyID, result) }()

	if err := c.coordinator.PauseStrategy(strategyID); err != nil {
		c.log.WithError(err).WithField("strategy_id", strategyID).Error("pause failed")
		return failure(err.Error())
	}
	return success(fmt.Sprintf("strategy %s paused", strategyID))
}

// Resume delegates to the coordinator.
func (c *Controller) Resume(ctx context.Context, strategyID string) (result Result) {
	defer c.guard("resume", &result)
	defer func() { c.record(ctx, "resume", strategyID, result) }()

	if err := c.coordinator.ResumeStrategy(strategyID); err != nil {
		c.log.WithError(err).WithField("strategy_id", strategyID).Error("resume failed")
		return failure(err.Error())
	}
	return success(fmt.Sprintf("strategy %s resumed", strategyID))
}

// Rebalance delegates to the ledger's transactional rebalance.
func (c *Controller) Rebalance(ctx context.Context, weights map[string]decimal.Decimal) (result Result) {
	defer c.guard("rebalance", &result)
	defer func() { c.record(ctx, "rebalance", "", result) }()

	if err := c.ledger.RebalanceAllocations(weights); err != nil {
		c.log.WithError(err).Error("rebalance failed")
		return failure(err.Error())
	}

	c.log.WithField("strategies", len(weights)).Info("allocations rebalanced")
	return success(fmt.Sprintf("rebalanced %d strategies", len(weights)))
}

// guard converts a panic inside an operation into a failed result so
// nothing ever escapes the controller boundary.
func (c *Controller) guard(op string, result *Result) {
	if r := recover(); r != nil {
		c.log.WithField("operation", op).Errorf("lifecycle operation panicked: %v", r)
		*result = failure(fmt.Sprintf("%s panicked: %v", op, r))
	}
}

func (c *Controller) record(ctx context.Context, op, strategyID string, result Result) {
	if c.events == nil {
		return
	}
	event := &model.LifecycleEvent{
		Operation:  op,
		StrategyID: strategyID,
		Success:    result.Success,
		Reason:     result.Reason,
	}
	if err := c.events.Create(ctx, event); err != nil {
		c.log.WithError(err).WithField("operation", op).Warn("failed to journal lifecycle event")
	}
}
