package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PositionView is a read-only copy of one position for the control API.
type PositionView struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
}

// AllocationView is a read-only copy of one strategy allocation.
type AllocationView struct {
	StrategyID           string          `json:"strategy_id"`
	AllocationPercentage decimal.Decimal `json:"allocation_percentage"`
	TotalAllocated       decimal.Decimal `json:"total_allocated"`
	TotalSpent           decimal.Decimal `json:"total_spent"`
	AvailableCapital     decimal.Decimal `json:"available_capital"`
	Positions            []PositionView  `json:"positions"`
}

// HasStrategy reports whether the strategy is registered with the ledger.
func (l *Ledger) HasStrategy(strategyID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.allocations[strategyID]
	return ok
}

// AvailableCapital returns the strategy's uncommitted capital, or false
// when the strategy is not registered.
func (l *Ledger) AvailableCapital(strategyID string) (decimal.Decimal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return decimal.Zero, false
	}
	return alloc.AvailableCapital(), true
}

// Position returns a copy of the strategy's position in symbol, if any.
func (l *Ledger) Position(strategyID, symbol string) (StrategyPosition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	alloc, ok := l.allocations[strategyID]
	if !ok {
		return StrategyPosition{}, false
	}
	pos, ok := alloc.Positions[symbol]
	return pos, ok
}

// Snapshot returns a deep copy of every allocation, sorted by strategy id,
// for observability endpoints.
func (l *Ledger) Snapshot() []AllocationView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	views := make([]AllocationView, 0, len(l.allocations))
	for _, alloc := range l.allocations {
		view := AllocationView{
			StrategyID:           alloc.StrategyID,
			AllocationPercentage: alloc.AllocationPercentage,
			TotalAllocated:       alloc.TotalAllocated,
			TotalSpent:           alloc.TotalSpent,
			AvailableCapital:     alloc.AvailableCapital(),
			Positions:            make([]PositionView, 0, len(alloc.Positions)),
		}
		for _, pos := range alloc.Positions {
			view.Positions = append(view.Positions, PositionView{
				Symbol:    pos.Symbol,
				Quantity:  pos.Quantity,
				TotalCost: pos.TotalCost,
				AvgCost:   pos.AvgCost(),
			})
		}
		sort.Slice(view.Positions, func(i, j int) bool {
			return view.Positions[i].Symbol < view.Positions[j].Symbol
		})
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].StrategyID < views[j].StrategyID
	})

	return views
}
