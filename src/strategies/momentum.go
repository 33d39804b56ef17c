package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

// Momentum enters on a sustained move over the lookback window and closes
// on an equally sized move against it.
type Momentum struct {
	window    int
	threshold decimal.Decimal
	sizePct   decimal.Decimal
}

// NewMomentum builds the breakout extractor. Params: window (default 20),
// threshold (default 0.05, fractional return), size_pct (default 0.25).
func NewMomentum(params map[string]string) (StrategyExtractor, error) {
	window, err := intParam(params, "window", 20)
	if err != nil {
		return nil, err
	}
	threshold, err := decimalParam(params, "threshold", "0.05")
	if err != nil {
		return nil, err
	}
	sizePct, err := decimalParam(params, "size_pct", "0.25")
	if err != nil {
		return nil, err
	}
	if window <= 1 {
		return nil, fmt.Errorf("momentum requires window > 1, got %d", window)
	}
	if !threshold.IsPositive() {
		return nil, fmt.Errorf("momentum requires a positive threshold, got %s", threshold)
	}
	return &Momentum{window: window, threshold: threshold, sizePct: sizePct}, nil
}

func (m *Momentum) Lookback() int {
	return m.window
}

func (m *Momentum) ExtractSignal(bars []model.Bar) (model.TradingSignal, error) {
	if len(bars) < m.Lookback() {
		return insufficientHistory(bars, m.Lookback()), nil
	}

	closes := model.Closes(bars)
	first := closes[len(closes)-m.window]
	last := closes[len(closes)-1]

	if !first.IsPositive() {
		return model.TradingSignal{}, fmt.Errorf("momentum window starts at non-positive close %s", first)
	}

	ret := last.Div(first).Sub(decimal.NewFromInt(1))

	lastBar := bars[len(bars)-1]
	signal := model.TradingSignal{
		Symbol:    lastBar.Symbol,
		Type:      model.SignalHold,
		Price:     lastBar.Close,
		Timestamp: lastBar.Datetime,
		Indicators: map[string]any{
			"window_return": ret,
		},
	}

	switch {
	case ret.GreaterThan(m.threshold):
		signal.Type = model.SignalBuy
		signal.Size = model.EquityPct(m.sizePct)
	case ret.LessThan(m.threshold.Neg()):
		signal.Type = model.SignalClose
	}

	return signal, nil
}
