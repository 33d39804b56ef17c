package model

import "github.com/shopspring/decimal"

// StrategyConfig is the identity and binding for one strategy. Created at
// load time or via hot-deploy, mutated only by lifecycle operations.
type StrategyConfig struct {
	StrategyID string `json:"strategy_id"`
	// Extractor names the registered extractor factory that produces
	// signals for this strategy.
	Extractor string `json:"extractor"`
	// Allocation is the fraction of account value the strategy may
	// deploy, 0 < a <= 1.
	Allocation decimal.Decimal `json:"allocation"`
	// LookbackPeriod is the minimum history bars the extractor needs.
	LookbackPeriod int `json:"lookback_period"`
	// Symbol, when set, restricts the strategy to that one symbol.
	// Empty means the strategy runs against every tracked symbol.
	Symbol string `json:"symbol,omitempty"`
	// Params are passed through to the extractor factory.
	Params map[string]string `json:"params,omitempty"`
}

// AppliesTo reports whether the strategy should run against symbol.
func (c StrategyConfig) AppliesTo(symbol string) bool {
	return c.Symbol == "" || c.Symbol == symbol
}
