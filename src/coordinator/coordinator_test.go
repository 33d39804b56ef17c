package coordinator

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"strategycoordinator/src/model"
)

type stubExtractor struct {
	signal model.TradingSignal
	err    error
	panics bool
	calls  int
}

func (s *stubExtractor) ExtractSignal(bars []model.Bar) (model.TradingSignal, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return model.TradingSignal{}, s.err
	}
	return s.signal, nil
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	return New(logger.NewEntry(log))
}

func cfg(id, symbol string) model.StrategyConfig {
	return model.StrategyConfig{
		StrategyID:     id,
		Extractor:      "stub",
		Allocation:     decimal.RequireFromString("0.5"),
		LookbackPeriod: 5,
		Symbol:         symbol,
	}
}

func bars(symbol string, closes ...string) []model.Bar {
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
			Symbol:   symbol,
		})
	}
	return out
}

func TestGenerateSignals_TagsAndCaches(t *testing.T) {
	c := newTestCoordinator(t)

	buy := &stubExtractor{signal: model.TradingSignal{Type: model.SignalBuy, Price: decimal.NewFromInt(100)}}
	if err := c.AddStrategyRuntime(cfg("buyer", ""), buy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signals := c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100", "101"))
	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(signals))
	}

	signal := signals["buyer"]
	if signal.StrategyID != "buyer" || signal.Symbol != "BTCUSDT" {
		t.Fatalf("expected signal tagged with strategy and symbol, got %+v", signal)
	}

	cached := c.ActiveSignals()
	if cached["buyer"]["BTCUSDT"].Type != model.SignalBuy {
		t.Fatalf("expected signal cached in active signals")
	}
}

func TestGenerateSignals_SymbolBinding(t *testing.T) {
	c := newTestCoordinator(t)

	bound := &stubExtractor{signal: model.TradingSignal{Type: model.SignalBuy}}
	free := &stubExtractor{signal: model.TradingSignal{Type: model.SignalSell}}
	if err := c.AddStrategyRuntime(cfg("eth-only", "ETHUSDT"), bound); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AddStrategyRuntime(cfg("any", ""), free); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signals := c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))
	if _, ok := signals["eth-only"]; ok {
		t.Fatalf("symbol-bound strategy must not run against other symbols")
	}
	if _, ok := signals["any"]; !ok {
		t.Fatalf("unbound strategy must run against every symbol")
	}
	if bound.calls != 0 {
		t.Fatalf("expected bound extractor not to be invoked, got %d calls", bound.calls)
	}
}

func TestGenerateSignals_ErrorBecomesHold(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	c := New(logger.NewEntry(log))

	failing := &stubExtractor{err: errors.New("bad indicator window")}
	healthy := &stubExtractor{signal: model.TradingSignal{Type: model.SignalBuy}}
	if err := c.AddStrategyRuntime(cfg("failing", ""), failing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AddStrategyRuntime(cfg("healthy", ""), healthy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signals := c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))

	hold := signals["failing"]
	if hold.Type != model.SignalHold {
		t.Fatalf("expected HOLD for failing extractor, got %s", hold.Type)
	}
	if hold.Metadata["error"] != "bad indicator window" {
		t.Fatalf("expected error carried in metadata, got %v", hold.Metadata)
	}
	if signals["healthy"].Type != model.SignalBuy {
		t.Fatalf("failing extractor must not affect the healthy one")
	}
	if len(hook.AllEntries()) == 0 {
		t.Fatalf("expected the failure to be logged")
	}
}

func TestGenerateSignals_PanicBecomesHold(t *testing.T) {
	c := newTestCoordinator(t)

	if err := c.AddStrategyRuntime(cfg("panics", ""), &stubExtractor{panics: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signals := c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))
	if signals["panics"].Type != model.SignalHold {
		t.Fatalf("expected panic to be converted to HOLD, got %s", signals["panics"].Type)
	}
}

func TestPauseResume(t *testing.T) {
	c := newTestCoordinator(t)

	stub := &stubExtractor{signal: model.TradingSignal{Type: model.SignalBuy}}
	if err := c.AddStrategyRuntime(cfg("a", ""), stub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))
	if len(c.ActiveSignals()["a"]) == 0 {
		t.Fatalf("expected cached signal before pause")
	}

	if err := c.PauseStrategy("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// cached signals evicted, no new entries while paused
	if _, ok := c.ActiveSignals()["a"]; ok {
		t.Fatalf("expected active signals evicted on pause")
	}
	signals := c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))
	if _, ok := signals["a"]; ok {
		t.Fatalf("paused strategy must not generate signals")
	}
	if !c.IsPaused("a") {
		t.Fatalf("expected strategy to report paused")
	}

	if err := c.ResumeStrategy("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	signals = c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))
	if _, ok := signals["a"]; !ok {
		t.Fatalf("resumed strategy must generate signals again")
	}

	if err := c.PauseStrategy("ghost"); err == nil {
		t.Fatalf("expected pause of unknown strategy to fail")
	}
	if err := c.ResumeStrategy("ghost"); err == nil {
		t.Fatalf("expected resume of unknown strategy to fail")
	}
}

func TestAddRemoveStrategyRuntime(t *testing.T) {
	c := newTestCoordinator(t)

	if err := c.AddStrategyRuntime(cfg("a", ""), &stubExtractor{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AddStrategyRuntime(cfg("a", ""), &stubExtractor{}); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
	if err := c.AddStrategyRuntime(cfg("nil-extractor", ""), nil); err == nil {
		t.Fatalf("expected nil extractor to fail")
	}
	if c.HasStrategy("nil-extractor") {
		t.Fatalf("failed add must not leave partial state")
	}

	c.GenerateSignals("BTCUSDT", bars("BTCUSDT", "100"))
	if err := c.RemoveStrategyRuntime("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.HasStrategy("a") {
		t.Fatalf("expected strategy removed")
	}
	if _, ok := c.ActiveSignals()["a"]; ok {
		t.Fatalf("expected cached signals removed with the strategy")
	}
	if err := c.RemoveStrategyRuntime("a"); err == nil {
		t.Fatalf("expected double remove to fail")
	}
}
