package portfolio

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// allocation tolerances. Adds accept up to 1.01 total, matching the looser
// load-time check; the epsilon only absorbs rounding dust.
var (
	epsilon            = decimal.New(1, -6) // 1e-6
	maxTotalAllocation = decimal.RequireFromString("1.01")
	one                = decimal.NewFromInt(1)
)

// StrategyPosition tracks one strategy's holding in one symbol.
type StrategyPosition struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// AvgCost is total cost over quantity, zero when the position is empty.
func (p StrategyPosition) AvgCost() decimal.Decimal {
	if p.Quantity.IsPositive() {
		return p.TotalCost.Div(p.Quantity)
	}
	return decimal.Zero
}

// StrategyAllocation is the ledger-side record for one strategy.
type StrategyAllocation struct {
	StrategyID           string
	AllocationPercentage decimal.Decimal
	TotalAllocated       decimal.Decimal
	TotalSpent           decimal.Decimal
	Positions            map[string]StrategyPosition
}

// AvailableCapital is allocation minus the amount committed to open
// positions. May dip to -epsilon from rounding, never further.
func (a *StrategyAllocation) AvailableCapital() decimal.Decimal {
	return a.TotalAllocated.Sub(a.TotalSpent)
}

// Ledger owns per-strategy capital allocation and position bookkeeping.
// Steady-state mutation happens from the single cycle goroutine; lifecycle
// operations may arrive from the control API, so every entry point takes
// the ledger mutex.
type Ledger struct {
	mu           sync.RWMutex
	log          *logger.Entry
	accountValue decimal.Decimal
	allocations  map[string]*StrategyAllocation
}

func NewLedger(log *logger.Entry, accountValue decimal.Decimal) *Ledger {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Ledger{
		log:          log,
		accountValue: accountValue,
		allocations:  make(map[string]*StrategyAllocation),
	}
}

// UpdateAccountValue recomputes every strategy's total_allocated from the
// fresh account value. Always succeeds.
func (l *Ledger) UpdateAccountValue(value decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accountValue = value
	for _, alloc := range l.allocations {
		alloc.TotalAllocated = value.Mul(alloc.AllocationPercentage)
	}
}

// AccountValue returns the last account value pushed into the ledger.
func (l *Ledger) AccountValue() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountValue
}

// CanBuy checks whether the strategy has capital for a buy of the given
// dollar amount. Multiple strategies may hold the same symbol; only the
// per-strategy capital limit is enforced.
func (l *Ledger) CanBuy(strategyID, symbol string, amount decimal.Decimal) (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return false, fmt.Sprintf("strategy %s not registered", strategyID)
	}

	available := alloc.AvailableCapital()
	if amount.GreaterThan(available) {
		return false, fmt.Sprintf(
			"insufficient capital for %s: need %s, available %s", symbol, amount, available)
	}

	return true, ""
}

// CanSell checks whether the strategy holds the symbol and, when quantity
// is given, holds at least that much.
func (l *Ledger) CanSell(strategyID, symbol string, quantity *decimal.Decimal) (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return false, fmt.Sprintf("strategy %s not registered", strategyID)
	}

	pos, ok := alloc.Positions[symbol]
	if !ok {
		return false, fmt.Sprintf("strategy %s has no position in %s", strategyID, symbol)
	}

	if quantity != nil && quantity.GreaterThan(pos.Quantity) {
		return false, fmt.Sprintf(
			"sell quantity %s exceeds held quantity %s in %s", quantity, pos.Quantity, symbol)
	}

	return true, ""
}

// RecordBuy commits amount dollars of the strategy's capital to symbol and
// updates the position cost basis. Quantity may be nil when the fill size
// is unknown.
func (l *Ledger) RecordBuy(strategyID, symbol string, amount decimal.Decimal, quantity *decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return fmt.Errorf("strategy %s not registered", strategyID)
	}

	alloc.TotalSpent = alloc.TotalSpent.Add(amount)

	pos := alloc.Positions[symbol]
	pos.Symbol = symbol
	pos.TotalCost = pos.TotalCost.Add(amount)
	if quantity != nil {
		pos.Quantity = pos.Quantity.Add(*quantity)
	}
	alloc.Positions[symbol] = pos

	l.log.WithFields(logger.Fields{
		"strategy_id": strategyID,
		"symbol":      symbol,
		"amount":      amount,
		"spent":       alloc.TotalSpent,
	}).Debug("buy recorded")

	return nil
}

// RecordSell returns amount dollars of proceeds to the strategy's available
// capital. When quantity is known and smaller than the held quantity the
// cost basis shrinks proportionally; quantity >= held closes the position.
// A nil quantity also closes the position, but that case conflates "full
// close" with "unknown size", so it is logged at warn level.
func (l *Ledger) RecordSell(strategyID, symbol string, amount decimal.Decimal, quantity *decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return fmt.Errorf("strategy %s not registered", strategyID)
	}

	alloc.TotalSpent = alloc.TotalSpent.Sub(amount)

	pos, held := alloc.Positions[symbol]
	if !held {
		l.log.WithFields(logger.Fields{
			"strategy_id": strategyID,
			"symbol":      symbol,
		}).Warn("sell recorded against unknown position")
		return nil
	}

	switch {
	case quantity == nil:
		l.log.WithFields(logger.Fields{
			"strategy_id":   strategyID,
			"symbol":        symbol,
			"held_quantity": pos.Quantity,
		}).Warn("sell with unspecified quantity, treating as full close")
		delete(alloc.Positions, symbol)

	case quantity.GreaterThanOrEqual(pos.Quantity):
		delete(alloc.Positions, symbol)

	default:
		// proportional cost basis: cost *= (1 - sold/held)
		remaining := one.Sub(quantity.Div(pos.Quantity))
		pos.TotalCost = pos.TotalCost.Mul(remaining)
		pos.Quantity = pos.Quantity.Sub(*quantity)
		alloc.Positions[symbol] = pos
	}

	l.log.WithFields(logger.Fields{
		"strategy_id": strategyID,
		"symbol":      symbol,
		"amount":      amount,
		"spent":       alloc.TotalSpent,
	}).Debug("sell recorded")

	return nil
}

// AddStrategyRuntime registers a new strategy allocation with zero spend.
// Rejected without mutation when the id exists or the combined allocation
// would exceed the 1.01 cap.
func (l *Ledger) AddStrategyRuntime(strategyID string, percentage decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.allocations[strategyID]; exists {
		return fmt.Errorf("strategy %s already registered", strategyID)
	}

	if percentage.LessThanOrEqual(decimal.Zero) || percentage.GreaterThan(one) {
		return fmt.Errorf("allocation %s out of range (0, 1]", percentage)
	}

	total := l.totalAllocationLocked().Add(percentage)
	if total.GreaterThan(maxTotalAllocation) {
		return fmt.Errorf(
			"total allocation %s would exceed %s", total, maxTotalAllocation)
	}

	l.allocations[strategyID] = &StrategyAllocation{
		StrategyID:           strategyID,
		AllocationPercentage: percentage,
		TotalAllocated:       l.accountValue.Mul(percentage),
		Positions:            make(map[string]StrategyPosition),
	}

	l.log.WithFields(logger.Fields{
		"strategy_id": strategyID,
		"allocation":  percentage,
	}).Info("strategy allocation registered")

	return nil
}

// RemoveStrategyRuntime drops the strategy's allocation. When liquidate is
// set the caller is responsible for having issued closing orders first;
// removal itself never touches the broker.
func (l *Ledger) RemoveStrategyRuntime(strategyID string, liquidate bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return fmt.Errorf("strategy %s not registered", strategyID)
	}

	if len(alloc.Positions) > 0 && !liquidate {
		l.log.WithFields(logger.Fields{
			"strategy_id": strategyID,
			"positions":   len(alloc.Positions),
		}).Warn("removing strategy with open positions without liquidation")
	}

	delete(l.allocations, strategyID)

	l.log.WithFields(logger.Fields{
		"strategy_id": strategyID,
		"liquidate":   liquidate,
	}).Info("strategy allocation removed")

	return nil
}

// RebalanceAllocations applies a new weight set transactionally. Every
// named strategy must already exist and the weights must sum to a value in
// (0, 1]. On any failure mid-application every touched percentage is
// restored from the snapshot before the error is returned.
func (l *Ledger) RebalanceAllocations(weights map[string]decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(weights) == 0 {
		return fmt.Errorf("rebalance requires at least one weight")
	}

	sum := decimal.Zero
	for id, w := range weights {
		if w.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("weight for %s must be positive, got %s", id, w)
		}
		if _, ok := l.allocations[id]; !ok {
			return fmt.Errorf("strategy %s not registered", id)
		}
		sum = sum.Add(w)
	}
	if sum.GreaterThan(one.Add(epsilon)) {
		return fmt.Errorf("rebalance weights sum to %s, must not exceed 1.0", sum)
	}

	snapshot := make(map[string]decimal.Decimal, len(weights))

	restore := func() {
		for id, pct := range snapshot {
			if alloc, ok := l.allocations[id]; ok {
				alloc.AllocationPercentage = pct
				alloc.TotalAllocated = l.accountValue.Mul(pct)
			}
		}
	}

	for id, w := range weights {
		alloc, ok := l.allocations[id]
		if !ok {
			restore()
			return fmt.Errorf("strategy %s disappeared during rebalance", id)
		}
		snapshot[id] = alloc.AllocationPercentage
		alloc.AllocationPercentage = w
		alloc.TotalAllocated = l.accountValue.Mul(w)
	}

	l.log.WithField("strategies", len(weights)).Info("allocations rebalanced")

	return nil
}

// TotalAllocationPercentage sums every registered strategy's allocation.
func (l *Ledger) TotalAllocationPercentage() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalAllocationLocked()
}

func (l *Ledger) totalAllocationLocked() decimal.Decimal {
	total := decimal.Zero
	for _, alloc := range l.allocations {
		total = total.Add(alloc.AllocationPercentage)
	}
	return total
}
