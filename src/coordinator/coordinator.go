package coordinator

import (
	"fmt"
	"sort"
	"sync"

	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

// Extractor is the narrow contract the coordinator needs from a strategy
// engine: map a price-history window to a trading intent. Implementations
// live outside this package and are bound via the lifecycle controller.
type Extractor interface {
	ExtractSignal(bars []model.Bar) (model.TradingSignal, error)
}

type binding struct {
	config    model.StrategyConfig
	extractor Extractor
}

// Coordinator owns the set of active strategy bindings and drives signal
// generation per trading cycle. One failing extractor never aborts the
// cycle for the others: its failure becomes a HOLD signal carrying the
// error in metadata.
type Coordinator struct {
	mu            sync.RWMutex
	log           *logger.Entry
	strategies    map[string]*binding
	paused        map[string]struct{}
	activeSignals map[string]map[string]model.TradingSignal // strategy -> symbol -> signal
}

func New(log *logger.Entry) *Coordinator {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Coordinator{
		log:           log,
		strategies:    make(map[string]*binding),
		paused:        make(map[string]struct{}),
		activeSignals: make(map[string]map[string]model.TradingSignal),
	}
}

// GenerateSignals runs every configured, non-paused strategy whose symbol
// binding matches against the given history window. Results are tagged
// with the strategy id and cached as that strategy's active signal for
// the symbol.
func (c *Coordinator) GenerateSignals(symbol string, bars []model.Bar) map[string]model.TradingSignal {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make(map[string]model.TradingSignal)

	for _, id := range c.sortedIDsLocked() {
		b := c.strategies[id]
		if _, paused := c.paused[id]; paused {
			continue
		}
		if !b.config.AppliesTo(symbol) {
			continue
		}

		signal, err := safeExtract(b.extractor, bars)
		if err != nil {
			c.log.WithError(err).WithFields(logger.Fields{
				"strategy_id": id,
				"symbol":      symbol,
			}).Warn("signal extraction failed, holding")

			signal = model.HoldSignal(id, symbol, map[string]any{"error": err.Error()})
		}

		signal.StrategyID = id
		if signal.Symbol == "" {
			signal.Symbol = symbol
		}

		if c.activeSignals[id] == nil {
			c.activeSignals[id] = make(map[string]model.TradingSignal)
		}
		c.activeSignals[id][symbol] = signal
		results[id] = signal
	}

	return results
}

// safeExtract shields the cycle from panicking extractors. Arbitrary
// external strategy code runs behind this call.
func safeExtract(e Extractor, bars []model.Bar) (signal model.TradingSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return e.ExtractSignal(bars)
}

// PauseStrategy stops signal generation for the strategy and evicts its
// cached signals so stale intents cannot be replayed. Configuration is
// retained for resume.
func (c *Coordinator) PauseStrategy(strategyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.strategies[strategyID]; !ok {
		return fmt.Errorf("strategy %s not configured", strategyID)
	}

	c.paused[strategyID] = struct{}{}
	delete(c.activeSignals, strategyID)

	c.log.WithField("strategy_id", strategyID).Info("strategy paused")
	return nil
}

// ResumeStrategy re-enables signal generation.
func (c *Coordinator) ResumeStrategy(strategyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.strategies[strategyID]; !ok {
		return fmt.Errorf("strategy %s not configured", strategyID)
	}

	delete(c.paused, strategyID)

	c.log.WithField("strategy_id", strategyID).Info("strategy resumed")
	return nil
}

// AddStrategyRuntime binds a new strategy while the loop is live. A
// duplicate id or a nil extractor fails without leaving partial state.
func (c *Coordinator) AddStrategyRuntime(config model.StrategyConfig, extractor Extractor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if config.StrategyID == "" {
		return fmt.Errorf("strategy id is required")
	}
	if _, exists := c.strategies[config.StrategyID]; exists {
		return fmt.Errorf("strategy %s already configured", config.StrategyID)
	}
	if extractor == nil {
		return fmt.Errorf("strategy %s has no extractor bound", config.StrategyID)
	}

	c.strategies[config.StrategyID] = &binding{config: config, extractor: extractor}

	c.log.WithFields(logger.Fields{
		"strategy_id": config.StrategyID,
		"extractor":   config.Extractor,
		"symbol":      config.Symbol,
	}).Info("strategy configured")

	return nil
}

// RemoveStrategyRuntime drops the strategy's configuration, paused mark
// and cached signals.
func (c *Coordinator) RemoveStrategyRuntime(strategyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.strategies[strategyID]; !ok {
		return fmt.Errorf("strategy %s not configured", strategyID)
	}

	delete(c.strategies, strategyID)
	delete(c.paused, strategyID)
	delete(c.activeSignals, strategyID)

	c.log.WithField("strategy_id", strategyID).Info("strategy removed")
	return nil
}

// HasStrategy reports whether the strategy is configured.
func (c *Coordinator) HasStrategy(strategyID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.strategies[strategyID]
	return ok
}

// IsPaused reports whether the strategy is currently paused.
func (c *Coordinator) IsPaused(strategyID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.paused[strategyID]
	return ok
}

// Strategies returns the configured strategies, sorted by id.
func (c *Coordinator) Strategies() []model.StrategyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.StrategyConfig, 0, len(c.strategies))
	for _, id := range c.sortedIDsLocked() {
		out = append(out, c.strategies[id].config)
	}
	return out
}

// ActiveSignals returns a deep copy of the signal cache for observability.
// HOLD-on-error entries stay visible here, tagged with the triggering
// error.
func (c *Coordinator) ActiveSignals() map[string]map[string]model.TradingSignal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]model.TradingSignal, len(c.activeSignals))
	for id, bySymbol := range c.activeSignals {
		out[id] = make(map[string]model.TradingSignal, len(bySymbol))
		for symbol, signal := range bySymbol {
			out[id][symbol] = signal
		}
	}
	return out
}

func (c *Coordinator) sortedIDsLocked() []string {
	ids := make([]string, 0, len(c.strategies))
	for id := range c.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
