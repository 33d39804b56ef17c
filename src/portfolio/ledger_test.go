package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func newTestLedger(t *testing.T, accountValue string) *Ledger {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	return NewLedger(logger.NewEntry(log), d(accountValue))
}

func TestAddStrategyRuntime_AllocatesFromAccountValue(t *testing.T) {
	ledger := newTestLedger(t, "10000")

	if err := ledger.AddStrategyRuntime("sma", d("0.4")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views := ledger.Snapshot()
	if len(views) != 1 {
		t.Fatalf("expected one allocation, got %d", len(views))
	}
	if !views[0].TotalAllocated.Equal(d("4000")) {
		t.Fatalf("expected total allocated 4000, got %s", views[0].TotalAllocated)
	}
	if !views[0].AvailableCapital.Equal(d("4000")) {
		t.Fatalf("expected available 4000, got %s", views[0].AvailableCapital)
	}
}

func TestAddStrategyRuntime_RejectsOverAllocation(t *testing.T) {
	ledger := newTestLedger(t, "10000")

	if err := ledger.AddStrategyRuntime("a", d("0.9")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0.9 + 0.2 = 1.1 > 1.01: must reject without mutating state.
	if err := ledger.AddStrategyRuntime("b", d("0.2")); err == nil {
		t.Fatalf("expected over-allocation to be rejected")
	}

	if !ledger.TotalAllocationPercentage().Equal(d("0.9")) {
		t.Fatalf("ledger mutated by rejected add: total %s", ledger.TotalAllocationPercentage())
	}
	if ledger.HasStrategy("b") {
		t.Fatalf("rejected strategy must not be registered")
	}
}

func TestAddStrategyRuntime_RejectsDuplicateAndBadRange(t *testing.T) {
	ledger := newTestLedger(t, "10000")

	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.AddStrategyRuntime("a", d("0.1")); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
	if err := ledger.AddStrategyRuntime("zero", d("0")); err == nil {
		t.Fatalf("expected zero allocation to be rejected")
	}
	if err := ledger.AddStrategyRuntime("big", d("1.5")); err == nil {
		t.Fatalf("expected allocation above 1 to be rejected")
	}
}

func TestUpdateAccountValue_RecomputesAllocations(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger.UpdateAccountValue(d("20000"))

	views := ledger.Snapshot()
	if !views[0].TotalAllocated.Equal(d("10000")) {
		t.Fatalf("expected total allocated 10000 after update, got %s", views[0].TotalAllocated)
	}
}

func TestBuySellRoundTrip_RestoresAvailableCapital(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := ledger.Snapshot()[0].AvailableCapital

	if err := ledger.RecordBuy("a", "BTCUSDT", d("1000"), ptr("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.RecordSell("a", "BTCUSDT", d("1000"), ptr("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := ledger.Snapshot()[0].AvailableCapital
	if !after.Equal(before) {
		t.Fatalf("round trip changed available capital: before %s, after %s", before, after)
	}
}

func TestCanBuy(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := ledger.CanBuy("a", "BTCUSDT", d("500")); !ok {
		t.Fatalf("expected buy within allocation to be allowed")
	}
	if ok, reason := ledger.CanBuy("a", "BTCUSDT", d("1500")); ok || reason == "" {
		t.Fatalf("expected buy above available capital to be rejected with reason")
	}
	if ok, reason := ledger.CanBuy("ghost", "BTCUSDT", d("1")); ok || reason == "" {
		t.Fatalf("expected unknown strategy to be rejected with reason")
	}
}

func TestCanSell(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.RecordBuy("a", "BTCUSDT", d("1000"), ptr("10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := ledger.CanSell("a", "BTCUSDT", ptr("4")); !ok {
		t.Fatalf("expected sell within held quantity to be allowed")
	}
	if ok, _ := ledger.CanSell("a", "BTCUSDT", nil); !ok {
		t.Fatalf("expected sell with unspecified quantity to be allowed")
	}
	if ok, _ := ledger.CanSell("a", "BTCUSDT", ptr("11")); ok {
		t.Fatalf("expected sell above held quantity to be rejected")
	}
	if ok, _ := ledger.CanSell("a", "ETHUSDT", ptr("1")); ok {
		t.Fatalf("expected sell without a position to be rejected")
	}
	if ok, _ := ledger.CanSell("ghost", "BTCUSDT", ptr("1")); ok {
		t.Fatalf("expected unknown strategy to be rejected")
	}
}

func TestRecordSell_ProportionalCostBasis(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.RecordBuy("a", "BTCUSDT", d("100"), ptr("10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// sell 4 of 10: cost scales to 100 * (1 - 4/10) = 60
	if err := ledger.RecordSell("a", "BTCUSDT", d("40"), ptr("4")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, ok := ledger.Position("a", "BTCUSDT")
	if !ok {
		t.Fatalf("expected position to survive a partial sell")
	}
	if !pos.Quantity.Equal(d("6")) {
		t.Fatalf("expected remaining quantity 6, got %s", pos.Quantity)
	}
	if !pos.TotalCost.Equal(d("60")) {
		t.Fatalf("expected remaining cost 60, got %s", pos.TotalCost)
	}
	if !pos.AvgCost().Equal(d("10")) {
		t.Fatalf("expected avg cost 10, got %s", pos.AvgCost())
	}
}

func TestRecordSell_FullCloseAndUnknownQuantity(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	ledger := NewLedger(logger.NewEntry(log), d("10000"))
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ledger.RecordBuy("a", "BTCUSDT", d("100"), ptr("10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.RecordSell("a", "BTCUSDT", d("100"), ptr("10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ledger.Position("a", "BTCUSDT"); ok {
		t.Fatalf("expected full-quantity sell to delete the position")
	}

	// nil quantity also closes, but is the ambiguous case and must warn.
	if err := ledger.RecordBuy("a", "ETHUSDT", d("100"), ptr("5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hook.Reset()
	if err := ledger.RecordSell("a", "ETHUSDT", d("100"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ledger.Position("a", "ETHUSDT"); ok {
		t.Fatalf("expected unspecified-quantity sell to delete the position")
	}

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logger.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a warning for the unspecified-quantity close")
	}
}

func TestRebalanceAllocations(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	for id, pct := range map[string]string{"a": "0.3", "b": "0.3"} {
		if err := ledger.AddStrategyRuntime(id, d(pct)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := ledger.RebalanceAllocations(map[string]decimal.Decimal{
		"a": d("0.5"),
		"b": d("0.5"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, view := range ledger.Snapshot() {
		if !view.AllocationPercentage.Equal(d("0.5")) {
			t.Fatalf("expected %s at 0.5, got %s", view.StrategyID, view.AllocationPercentage)
		}
		if !view.TotalAllocated.Equal(d("5000")) {
			t.Fatalf("expected %s allocated 5000, got %s", view.StrategyID, view.TotalAllocated)
		}
	}
}

func TestRebalanceAllocations_UnknownStrategyLeavesStateUntouched(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	for id, pct := range map[string]string{"a": "0.3", "b": "0.3"} {
		if err := ledger.AddStrategyRuntime(id, d(pct)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	err := ledger.RebalanceAllocations(map[string]decimal.Decimal{
		"a":     d("0.5"),
		"ghost": d("0.5"),
	})
	if err == nil {
		t.Fatalf("expected rebalance with unknown strategy to fail")
	}

	for _, view := range ledger.Snapshot() {
		if !view.AllocationPercentage.Equal(d("0.3")) {
			t.Fatalf("expected %s untouched at 0.3, got %s", view.StrategyID, view.AllocationPercentage)
		}
	}
}

func TestRebalanceAllocations_RejectsBadWeights(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ledger.RebalanceAllocations(nil); err == nil {
		t.Fatalf("expected empty weights to be rejected")
	}
	if err := ledger.RebalanceAllocations(map[string]decimal.Decimal{"a": d("-0.1")}); err == nil {
		t.Fatalf("expected negative weight to be rejected")
	}
	if err := ledger.RebalanceAllocations(map[string]decimal.Decimal{"a": d("1.2")}); err == nil {
		t.Fatalf("expected weights above 1.0 to be rejected")
	}
}

func TestTotalAllocationInvariantAfterMutations(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	limit := d("1").Add(d("0.000001"))

	_ = ledger.AddStrategyRuntime("a", d("0.5"))
	_ = ledger.AddStrategyRuntime("b", d("0.4"))
	_ = ledger.AddStrategyRuntime("c", d("0.2")) // rejected, 1.1 > 1.01
	_ = ledger.RebalanceAllocations(map[string]decimal.Decimal{"a": d("0.6"), "b": d("0.4")})

	if ledger.TotalAllocationPercentage().GreaterThan(limit) {
		t.Fatalf("allocation invariant violated: %s", ledger.TotalAllocationPercentage())
	}
}

func TestRemoveStrategyRuntime(t *testing.T) {
	ledger := newTestLedger(t, "10000")
	if err := ledger.AddStrategyRuntime("a", d("0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.RecordBuy("a", "BTCUSDT", d("100"), ptr("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ledger.RemoveStrategyRuntime("ghost", false); err == nil {
		t.Fatalf("expected unknown strategy removal to fail")
	}
	if err := ledger.RemoveStrategyRuntime("a", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.HasStrategy("a") {
		t.Fatalf("expected strategy to be gone after removal")
	}
}
