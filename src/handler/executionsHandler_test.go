package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"strategycoordinator/src/model"
)

type mockExecutionSearcher struct {
	rows []model.ExecutionLog
	err  error

	strategyID string
	limit      int
	filtered   bool
}

func (m *mockExecutionSearcher) FindLatest(_ context.Context, limit int) ([]model.ExecutionLog, error) {
	m.limit = limit
	return m.rows, m.err
}

func (m *mockExecutionSearcher) FindLatestByStrategy(_ context.Context, strategyID string, limit int) ([]model.ExecutionLog, error) {
	m.filtered = true
	m.strategyID = strategyID
	m.limit = limit
	return m.rows, m.err
}

func TestExecutionsHandler(t *testing.T) {
	journal := &mockExecutionSearcher{rows: []model.ExecutionLog{
		{StrategyID: "alpha", Symbol: "BTC_USDT", Status: model.ExecutionStatusFilled},
	}}
	handler := ExecutionsHandler(journal)

	req := httptest.NewRequest(http.MethodGet, "/executions", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if journal.filtered {
		t.Fatalf("expected unfiltered lookup without strategyId param")
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"strategy_id":"alpha"`) {
		t.Fatalf("expected alpha row in body, got %s", body)
	}
}

func TestExecutionsHandler_StrategyFilterAndLimit(t *testing.T) {
	journal := &mockExecutionSearcher{}
	handler := ExecutionsHandler(journal)

	req := httptest.NewRequest(http.MethodGet, "/executions?strategyId=alpha&limit=5", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !journal.filtered || journal.strategyID != "alpha" {
		t.Fatalf("expected filtered lookup for alpha, got %+v", journal)
	}
	if journal.limit != 5 {
		t.Fatalf("expected limit 5, got %d", journal.limit)
	}
	if !strings.Contains(rr.Body.String(), `"executions":[]`) {
		t.Fatalf("expected empty executions array, got %s", rr.Body.String())
	}
}

func TestExecutionsHandler_InvalidLimit(t *testing.T) {
	journal := &mockExecutionSearcher{}
	handler := ExecutionsHandler(journal)

	for _, raw := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/executions?limit="+raw, nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: expected status 400, got %d", raw, rr.Code)
		}
	}
	if journal.filtered || journal.limit != 0 {
		t.Fatalf("journal must not be queried for invalid limits")
	}
}

func TestExecutionsHandler_JournalError(t *testing.T) {
	journal := &mockExecutionSearcher{err: errors.New("db down")}
	handler := ExecutionsHandler(journal)

	req := httptest.NewRequest(http.MethodGet, "/executions", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}
