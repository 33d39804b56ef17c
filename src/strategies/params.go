package strategies

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

func intParam(params map[string]string, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

func decimalParam(params map[string]string, key, def string) (decimal.Decimal, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		raw = def
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

// smaAt is the simple moving average of the period closes ending at
// index end (exclusive). Callers guarantee end >= period.
func smaAt(closes []decimal.Decimal, period, end int) decimal.Decimal {
	sum := decimal.Zero
	for i := end - period; i < end; i++ {
		sum = sum.Add(closes[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}

// insufficientHistory is the HOLD every built-in returns when the window
// is shorter than its lookback.
func insufficientHistory(bars []model.Bar, lookback int) model.TradingSignal {
	signal := model.TradingSignal{
		Type: model.SignalHold,
		Metadata: map[string]any{
			"reason":   "insufficient history",
			"bars":     len(bars),
			"lookback": lookback,
		},
	}
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		signal.Symbol = last.Symbol
		signal.Price = last.Close
		signal.Timestamp = last.Datetime
	}
	return signal
}
