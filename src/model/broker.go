package model

import "github.com/shopspring/decimal"

// BrokerCapabilities describes the legal order shapes for the active
// broker and instrument. Consumed read-only by the position sizer.
type BrokerCapabilities struct {
	MinNotional      decimal.Decimal  `json:"min_notional"`
	MaxPositionSize  *decimal.Decimal `json:"max_position_size,omitempty"`
	MinLotSize       decimal.Decimal  `json:"min_lot_size"`
	StepSize         decimal.Decimal  `json:"step_size"`
	FractionalShares bool             `json:"fractional_shares"`
}

// AccountInfo is the broker-side account snapshot used to refresh the
// ledger's account value each cycle.
type AccountInfo struct {
	Cash       decimal.Decimal `json:"cash"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// BrokerPosition is a broker-agnostic open position as reported by the
// executing venue. The ledger keeps its own per-strategy bookkeeping;
// this type exists for reconciliation views only.
type BrokerPosition struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// OrderResult is the broker's answer to one ExecuteSignal call.
type OrderResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	OrderID        string          `json:"order_id,omitempty"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	FilledPrice    decimal.Decimal `json:"filled_price"`
}
