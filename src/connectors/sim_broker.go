package connectors

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

// SimOrder is one order the sim broker accepted or rejected, kept for
// test assertions.
type SimOrder struct {
	OrderID  string
	Symbol   string
	Side     string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Accepted bool
}

// SimBroker is an in-process BrokerExecutor for dry runs and tests. It
// fills market orders at the signal price and tracks cash and positions.
type SimBroker struct {
	mu        sync.Mutex
	connected bool

	cash      decimal.Decimal
	positions map[string]model.BrokerPosition
	caps      model.BrokerCapabilities

	// RejectOrders forces every ExecuteSignal to come back unfilled.
	RejectOrders bool
	// ConnectErr, when set, makes Connect fail.
	ConnectErr error

	Orders []SimOrder
}

func NewSimBroker(cash decimal.Decimal, caps model.BrokerCapabilities) *SimBroker {
	return &SimBroker{
		cash:      cash,
		caps:      caps,
		positions: make(map[string]model.BrokerPosition),
	}
}

func (b *SimBroker) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ConnectErr != nil {
		return b.ConnectErr
	}
	b.connected = true
	return nil
}

func (b *SimBroker) GetAccountInfo() (model.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return model.AccountInfo{}, ErrNotConnected
	}

	total := b.cash
	for _, pos := range b.positions {
		total = total.Add(pos.Quantity.Mul(pos.AvgPrice))
	}
	return model.AccountInfo{Cash: b.cash, TotalValue: total}, nil
}

func (b *SimBroker) GetPositions() (map[string]model.BrokerPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, ErrNotConnected
	}

	out := make(map[string]model.BrokerPosition, len(b.positions))
	for symbol, pos := range b.positions {
		out[symbol] = pos
	}
	return out, nil
}

func (b *SimBroker) GetCapabilities(string) (model.BrokerCapabilities, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return model.BrokerCapabilities{}, ErrNotConnected
	}
	return b.caps, nil
}

func (b *SimBroker) ExecuteSignal(symbol string, signal model.TradingSignal, quantity decimal.Decimal) (model.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return model.OrderResult{}, ErrNotConnected
	}

	side := "buy"
	if signal.IsSellSide() {
		side = "sell"
	}

	order := SimOrder{
		OrderID:  uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity.Abs(),
		Price:    signal.Price,
	}

	if b.RejectOrders {
		b.Orders = append(b.Orders, order)
		return model.OrderResult{Success: false, Message: "order rejected", OrderID: order.OrderID}, nil
	}

	qty := quantity.Abs()
	cost := qty.Mul(signal.Price)

	if side == "buy" {
		if cost.GreaterThan(b.cash) {
			b.Orders = append(b.Orders, order)
			return model.OrderResult{
				Success: false,
				Message: fmt.Sprintf("insufficient cash: need %s, have %s", cost, b.cash),
				OrderID: order.OrderID,
			}, nil
		}
		b.cash = b.cash.Sub(cost)

		pos := b.positions[symbol]
		newQty := pos.Quantity.Add(qty)
		pos.Symbol = symbol
		pos.AvgPrice = pos.Quantity.Mul(pos.AvgPrice).Add(cost).Div(newQty)
		pos.Quantity = newQty
		b.positions[symbol] = pos
	} else {
		pos, held := b.positions[symbol]
		if !held {
			b.Orders = append(b.Orders, order)
			return model.OrderResult{
				Success: false,
				Message: fmt.Sprintf("no position in %s", symbol),
				OrderID: order.OrderID,
			}, nil
		}
		if qty.GreaterThan(pos.Quantity) {
			qty = pos.Quantity
		}
		b.cash = b.cash.Add(qty.Mul(signal.Price))
		pos.Quantity = pos.Quantity.Sub(qty)
		if pos.Quantity.IsZero() {
			delete(b.positions, symbol)
		} else {
			b.positions[symbol] = pos
		}
	}

	order.Accepted = true
	order.Quantity = qty
	b.Orders = append(b.Orders, order)

	return model.OrderResult{
		Success:        true,
		Message:        "filled",
		OrderID:        order.OrderID,
		FilledQuantity: qty,
		FilledPrice:    signal.Price,
	}, nil
}

var _ BrokerExecutor = (*SimBroker)(nil)
