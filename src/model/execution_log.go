package model

import "time"

// ExecutionStatus constants represent the conclusion of one broker call.
const (
	ExecutionStatusFilled   = "filled"
	ExecutionStatusRejected = "rejected"
	ExecutionStatusError    = "error"
	ExecutionStatusSkipped  = "skipped"
)

// ExecutionLog is one audit row per broker execution attempt. Rows are
// write-only: the coordinator never reads them back into live state.
type ExecutionLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	StrategyID string   `gorm:"size:100;index" json:"strategy_id"`
	Symbol     string   `gorm:"size:100;index" json:"symbol"`
	Side       string   `gorm:"size:30" json:"side"`
	SignalType string   `gorm:"size:30" json:"signal_type"`
	Quantity   float64  `json:"quantity"`
	Price      *float64 `json:"price,omitempty"`
	Notional   float64  `json:"notional"`

	BrokerOrderID string `gorm:"size:255" json:"broker_order_id"`

	Status       string  `gorm:"size:50;not null" json:"status"`
	Reason       string  `gorm:"size:255" json:"reason"`
	ErrorMessage *string `json:"error_message,omitempty"`
	// Sizing holds the position sizer's ordered reasoning trail.
	Sizing string `gorm:"size:1024" json:"sizing"`

	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName allows you to control the exact table name for execution logs.
func (ExecutionLog) TableName() string {
	return "execution_logs"
}

// LifecycleEvent is one audit row per hot-swap operation.
type LifecycleEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Operation  string `gorm:"size:50;not null" json:"operation"` // deploy, undeploy, pause, resume, rebalance
	StrategyID string `gorm:"size:100;index" json:"strategy_id"`
	Success    bool   `gorm:"not null" json:"success"`
	Reason     string `gorm:"size:512" json:"reason"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName allows you to control the exact table name for lifecycle events.
func (LifecycleEvent) TableName() string {
	return "lifecycle_events"
}
