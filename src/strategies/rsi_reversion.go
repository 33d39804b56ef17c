package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

var hundred = decimal.NewFromInt(100)

// RSIReversion buys oversold conditions and exits overbought ones.
type RSIReversion struct {
	period    int
	buyBelow  decimal.Decimal
	sellAbove decimal.Decimal
	sizePct   decimal.Decimal
}

// NewRSIReversion builds the mean-reversion extractor. Params: period
// (default 14), buy_below (default 30), sell_above (default 70),
// size_pct (default 0.25).
func NewRSIReversion(params map[string]string) (StrategyExtractor, error) {
	period, err := intParam(params, "period", 14)
	if err != nil {
		return nil, err
	}
	buyBelow, err := decimalParam(params, "buy_below", "30")
	if err != nil {
		return nil, err
	}
	sellAbove, err := decimalParam(params, "sell_above", "70")
	if err != nil {
		return nil, err
	}
	sizePct, err := decimalParam(params, "size_pct", "0.25")
	if err != nil {
		return nil, err
	}
	if period <= 1 {
		return nil, fmt.Errorf("rsi_reversion requires period > 1, got %d", period)
	}
	if buyBelow.GreaterThanOrEqual(sellAbove) {
		return nil, fmt.Errorf("rsi_reversion requires buy_below < sell_above")
	}
	return &RSIReversion{period: period, buyBelow: buyBelow, sellAbove: sellAbove, sizePct: sizePct}, nil
}

func (r *RSIReversion) Lookback() int {
	return r.period + 1
}

func (r *RSIReversion) ExtractSignal(bars []model.Bar) (model.TradingSignal, error) {
	if len(bars) < r.Lookback() {
		return insufficientHistory(bars, r.Lookback()), nil
	}

	closes := model.Closes(bars)
	rsi := relativeStrength(closes, r.period)

	last := bars[len(bars)-1]
	signal := model.TradingSignal{
		Symbol:    last.Symbol,
		Type:      model.SignalHold,
		Price:     last.Close,
		Timestamp: last.Datetime,
		Indicators: map[string]any{
			"rsi": rsi,
		},
	}

	switch {
	case rsi.LessThan(r.buyBelow):
		signal.Type = model.SignalBuy
		signal.Size = model.EquityPct(r.sizePct)
	case rsi.GreaterThan(r.sellAbove):
		signal.Type = model.SignalClose
	}

	return signal, nil
}

// relativeStrength computes a simple-average RSI over the last period
// close-to-close changes.
func relativeStrength(closes []decimal.Decimal, period int) decimal.Decimal {
	gains := decimal.Zero
	losses := decimal.Zero

	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		change := closes[i].Sub(closes[i-1])
		if change.IsPositive() {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Abs())
		}
	}

	if losses.IsZero() {
		if gains.IsZero() {
			return decimal.NewFromInt(50)
		}
		return hundred
	}

	rs := gains.Div(losses)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}
