package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

// SMACross enters when the fast moving average crosses above the slow one
// and closes when it crosses back below.
type SMACross struct {
	fast    int
	slow    int
	sizePct decimal.Decimal
}

// NewSMACross builds the crossover extractor. Params: fast (default 10),
// slow (default 30), size_pct (default 0.25, equity fraction per entry).
func NewSMACross(params map[string]string) (StrategyExtractor, error) {
	fast, err := intParam(params, "fast", 10)
	if err != nil {
		return nil, err
	}
	slow, err := intParam(params, "slow", 30)
	if err != nil {
		return nil, err
	}
	sizePct, err := decimalParam(params, "size_pct", "0.25")
	if err != nil {
		return nil, err
	}
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("sma_cross requires 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	return &SMACross{fast: fast, slow: slow, sizePct: sizePct}, nil
}

func (s *SMACross) Lookback() int {
	// one extra bar so the previous crossover state is observable
	return s.slow + 1
}

func (s *SMACross) ExtractSignal(bars []model.Bar) (model.TradingSignal, error) {
	if len(bars) < s.Lookback() {
		return insufficientHistory(bars, s.Lookback()), nil
	}

	closes := model.Closes(bars)
	n := len(closes)

	fastNow := smaAt(closes, s.fast, n)
	slowNow := smaAt(closes, s.slow, n)
	fastPrev := smaAt(closes, s.fast, n-1)
	slowPrev := smaAt(closes, s.slow, n-1)

	last := bars[n-1]
	signal := model.TradingSignal{
		Symbol:    last.Symbol,
		Type:      model.SignalHold,
		Price:     last.Close,
		Timestamp: last.Datetime,
		Indicators: map[string]any{
			"sma_fast": fastNow,
			"sma_slow": slowNow,
		},
	}

	switch {
	case fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow):
		signal.Type = model.SignalBuy
		signal.Size = model.EquityPct(s.sizePct)
	case fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow):
		signal.Type = model.SignalClose
	}

	return signal, nil
}
