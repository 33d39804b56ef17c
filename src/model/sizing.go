package model

import "github.com/shopspring/decimal"

// SizingKind selects how a SizingIntent value is interpreted.
type SizingKind string

const (
	// SizingUnits is an absolute quantity of the instrument.
	SizingUnits SizingKind = "units"
	// SizingEquityPct is a fraction of total account value, 0..1.
	SizingEquityPct SizingKind = "equity_pct"
	// SizingNotional is an absolute dollar amount.
	SizingNotional SizingKind = "notional"
)

// SizingIntent is the abstract size carried on a signal before broker
// constraints are applied. Exactly one interpretation applies.
type SizingIntent struct {
	Kind  SizingKind      `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

func Units(v decimal.Decimal) *SizingIntent {
	return &SizingIntent{Kind: SizingUnits, Value: v}
}

func EquityPct(v decimal.Decimal) *SizingIntent {
	return &SizingIntent{Kind: SizingEquityPct, Value: v}
}

func Notional(v decimal.Decimal) *SizingIntent {
	return &SizingIntent{Kind: SizingNotional, Value: v}
}
