package connectors

import (
	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

// BrokerExecutor is the shared broker contract consumed by the trading
// loop. One instance is shared by every strategy; implementations guard
// their connection with their own lock because broker client objects are
// not safe for concurrent use.
type BrokerExecutor interface {
	Connect() error
	GetAccountInfo() (model.AccountInfo, error)
	GetPositions() (map[string]model.BrokerPosition, error)
	GetCapabilities(symbol string) (model.BrokerCapabilities, error)
	// ExecuteSignal submits one order for a non-HOLD signal. quantity is
	// the broker-legal size produced by the position sizer; its sign
	// follows the signal side.
	ExecuteSignal(symbol string, signal model.TradingSignal, quantity decimal.Decimal) (model.OrderResult, error)
}
