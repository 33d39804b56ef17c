package strategies

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

func barsFromCloses(closes ...string) []model.Bar {
	out := make([]model.Bar, 0, len(closes))
	for i, c := range closes {
		price := decimal.RequireFromString(c)
		out = append(out, model.Bar{
			Datetime: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
			Open:     price,
			High:     price,
			Low:      price,
			Close:    price,
			Volume:   decimal.NewFromInt(100),
			Symbol:   "BTCUSDT",
		})
	}
	return out
}

func flatBars(n int, price string) []model.Bar {
	closes := make([]string, n)
	for i := range closes {
		closes[i] = price
	}
	return barsFromCloses(closes...)
}

func TestSMACross_HoldsOnInsufficientHistory(t *testing.T) {
	extractor, err := NewSMACross(map[string]string{"fast": "2", "slow": "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signal, err := extractor.ExtractSignal(flatBars(3, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalHold {
		t.Fatalf("expected HOLD on insufficient history, got %s", signal.Type)
	}
	if signal.Metadata["reason"] != "insufficient history" {
		t.Fatalf("expected insufficient-history metadata, got %v", signal.Metadata)
	}
}

func TestSMACross_BuyOnCrossUp(t *testing.T) {
	extractor, err := NewSMACross(map[string]string{"fast": "2", "slow": "4", "size_pct": "0.3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// flat history, then a jump pulls the fast average above the slow one
	signal, err := extractor.ExtractSignal(barsFromCloses("100", "100", "100", "100", "120"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalBuy {
		t.Fatalf("expected BUY on cross up, got %s", signal.Type)
	}
	if signal.Size == nil || signal.Size.Kind != model.SizingEquityPct {
		t.Fatalf("expected an equity_pct sizing intent, got %+v", signal.Size)
	}
	if !signal.Size.Value.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected size_pct 0.3, got %s", signal.Size.Value)
	}
}

func TestSMACross_CloseOnCrossDown(t *testing.T) {
	extractor, err := NewSMACross(map[string]string{"fast": "2", "slow": "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signal, err := extractor.ExtractSignal(barsFromCloses("100", "100", "100", "100", "80"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalClose {
		t.Fatalf("expected CLOSE on cross down, got %s", signal.Type)
	}
}

func TestSMACross_RejectsBadParams(t *testing.T) {
	if _, err := NewSMACross(map[string]string{"fast": "30", "slow": "10"}); err == nil {
		t.Fatalf("expected fast >= slow to be rejected")
	}
	if _, err := NewSMACross(map[string]string{"fast": "abc"}); err == nil {
		t.Fatalf("expected unparseable param to be rejected")
	}
}

func TestRSIReversion_Signals(t *testing.T) {
	extractor, err := NewRSIReversion(map[string]string{"period": "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// straight decline: RSI 0, deep oversold
	signal, err := extractor.ExtractSignal(barsFromCloses("100", "95", "90", "85"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalBuy {
		t.Fatalf("expected BUY when oversold, got %s", signal.Type)
	}

	// straight climb: RSI 100, overbought
	signal, err = extractor.ExtractSignal(barsFromCloses("100", "105", "110", "115"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalClose {
		t.Fatalf("expected CLOSE when overbought, got %s", signal.Type)
	}

	// flat: neutral
	signal, err = extractor.ExtractSignal(flatBars(4, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalHold {
		t.Fatalf("expected HOLD on flat history, got %s", signal.Type)
	}
}

func TestMomentum_Signals(t *testing.T) {
	extractor, err := NewMomentum(map[string]string{"window": "3", "threshold": "0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signal, err := extractor.ExtractSignal(barsFromCloses("100", "110", "120"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalBuy {
		t.Fatalf("expected BUY on breakout, got %s", signal.Type)
	}

	signal, err = extractor.ExtractSignal(barsFromCloses("100", "90", "80"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.Type != model.SignalClose {
		t.Fatalf("expected CLOSE on breakdown, got %s", signal.Type)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewDefaultRegistry(nil)

	names := registry.Names()
	want := []string{"momentum", "rsi_reversion", "sma_cross"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("expected built-ins %v, got %v", want, names)
	}

	extractor, err := registry.Create("sma_cross", map[string]string{"fast": "2", "slow": "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extractor.Lookback() != 5 {
		t.Fatalf("expected lookback 5, got %d", extractor.Lookback())
	}

	if _, err := registry.Create("ghost", nil); err == nil {
		t.Fatalf("expected unknown extractor to fail")
	}
	if err := registry.Register("sma_cross", NewSMACross); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestParseMultiStrategyConfig(t *testing.T) {
	input := `
# strategy roster
strategies/sma_cross.py, trend, 0.5, BTCUSDT
rsi_reversion, dip, 0.3
`
	configs, err := ParseMultiStrategyConfig(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected two configs, got %d", len(configs))
	}

	if configs[0].Extractor != "sma_cross" {
		t.Fatalf("expected file path reduced to extractor name, got %s", configs[0].Extractor)
	}
	if configs[0].StrategyID != "trend" || configs[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected first config: %+v", configs[0])
	}
	if configs[1].Symbol != "" {
		t.Fatalf("expected optional symbol to default empty, got %q", configs[1].Symbol)
	}
}

func TestParseMultiStrategyConfig_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"over allocation", "sma_cross,a,0.9\nmomentum,b,0.2"},
		{"duplicate id", "sma_cross,a,0.3\nmomentum,a,0.3"},
		{"bad allocation", "sma_cross,a,abc"},
		{"allocation above 1", "sma_cross,a,1.5"},
		{"missing fields", "sma_cross,a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMultiStrategyConfig(strings.NewReader(tt.input)); err == nil {
				t.Fatalf("expected %s to be rejected", tt.name)
			}
		})
	}
}
