package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV candle in a symbol's history window.
type Bar struct {
	Datetime time.Time       `json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Symbol   string          `json:"symbol"`
}

// Closes extracts the close series from a bar window, oldest first.
func Closes(bars []Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.Close)
	}
	return out
}
