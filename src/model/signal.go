package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalType is the trading intent kind emitted by a strategy extractor.
type SignalType string

const (
	SignalBuy              SignalType = "BUY"
	SignalSell             SignalType = "SELL"
	SignalHold             SignalType = "HOLD"
	SignalClose            SignalType = "CLOSE"
	SignalLimitBuy         SignalType = "LIMIT_BUY"
	SignalLimitSell        SignalType = "LIMIT_SELL"
	SignalStopBuy          SignalType = "STOP_BUY"
	SignalStopSell         SignalType = "STOP_SELL"
	SignalStopLimitBuy     SignalType = "STOP_LIMIT_BUY"
	SignalStopLimitSell    SignalType = "STOP_LIMIT_SELL"
	SignalBracketBuy       SignalType = "BRACKET_BUY"
	SignalBracketSell      SignalType = "BRACKET_SELL"
	SignalTrailingStopBuy  SignalType = "TRAILING_STOP_BUY"
	SignalTrailingStopSell SignalType = "TRAILING_STOP_SELL"
)

// TradingSignal is produced fresh every cycle by a strategy extractor.
// Only the most recent signal per (strategy, symbol) is retained.
type TradingSignal struct {
	Symbol     string          `json:"symbol"`
	Type       SignalType      `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp"`
	Size       *SizingIntent   `json:"size,omitempty"`
	StrategyID string          `json:"strategy_id"`
	Indicators map[string]any  `json:"indicators,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// IsHold reports whether the signal carries no actionable intent.
func (s TradingSignal) IsHold() bool {
	return s.Type == SignalHold || s.Type == ""
}

// IsBuySide reports whether executing the signal increases the position.
func (s TradingSignal) IsBuySide() bool {
	switch s.Type {
	case SignalBuy, SignalLimitBuy, SignalStopBuy, SignalStopLimitBuy,
		SignalBracketBuy, SignalTrailingStopBuy:
		return true
	}
	return false
}

// IsSellSide reports whether executing the signal reduces or closes the
// position. CLOSE counts as sell side.
func (s TradingSignal) IsSellSide() bool {
	switch s.Type {
	case SignalSell, SignalClose, SignalLimitSell, SignalStopSell,
		SignalStopLimitSell, SignalBracketSell, SignalTrailingStopSell:
		return true
	}
	return false
}

// HoldSignal builds a HOLD for the given strategy and symbol. Used by the
// coordinator when an extractor fails, with the error recorded in metadata.
func HoldSignal(strategyID, symbol string, metadata map[string]any) TradingSignal {
	return TradingSignal{
		Symbol:     symbol,
		Type:       SignalHold,
		Timestamp:  time.Now().UTC(),
		StrategyID: strategyID,
		Metadata:   metadata,
	}
}
