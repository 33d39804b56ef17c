package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/lifecycle"
	"strategycoordinator/src/model"
	"strategycoordinator/src/portfolio"
)

// lifecycleController is the slice of the lifecycle controller the
// handlers need.
type lifecycleController interface {
	Deploy(ctx context.Context, config model.StrategyConfig) lifecycle.Result
	Undeploy(ctx context.Context, strategyID string, liquidate bool) lifecycle.Result
	Pause(ctx context.Context, strategyID string) lifecycle.Result
	Resume(ctx context.Context, strategyID string) lifecycle.Result
	Rebalance(ctx context.Context, weights map[string]decimal.Decimal) lifecycle.Result
}

// allocationReader exposes the ledger's observability surface.
type allocationReader interface {
	AccountValue() decimal.Decimal
	TotalAllocationPercentage() decimal.Decimal
	Snapshot() []portfolio.AllocationView
}

// signalReader exposes the coordinator's observability surface.
type signalReader interface {
	Strategies() []model.StrategyConfig
	ActiveSignals() map[string]map[string]model.TradingSignal
}

// DeployStrategyHandler hot-deploys a strategy while the loop is live.
func DeployStrategyHandler(ctrl lifecycleController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var config model.StrategyConfig
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&config); err != nil {
			logger.WithError(err).Warn("invalid deploy payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if config.StrategyID == "" || config.Extractor == "" {
			http.Error(w, "strategy_id and extractor are required", http.StatusBadRequest)
			return
		}

		writeResult(w, ctrl.Deploy(r.Context(), config))
	}
}

// UndeployStrategyHandler removes a strategy. The liquidate query flag
// marks that the caller wants open positions closed out.
func UndeployStrategyHandler(ctrl lifecycleController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strategyID := chi.URLParam(r, "strategyID")
		liquidate := r.URL.Query().Get("liquidate") == "true"

		writeResult(w, ctrl.Undeploy(r.Context(), strategyID, liquidate))
	}
}

// PauseStrategyHandler suspends signal generation for a strategy.
func PauseStrategyHandler(ctrl lifecycleController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, ctrl.Pause(r.Context(), chi.URLParam(r, "strategyID")))
	}
}

// ResumeStrategyHandler re-enables signal generation for a strategy.
func ResumeStrategyHandler(ctrl lifecycleController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, ctrl.Resume(r.Context(), chi.URLParam(r, "strategyID")))
	}
}

type rebalancePayload struct {
	Weights map[string]decimal.Decimal `json:"weights"`
}

// RebalanceHandler applies a new allocation weight set atomically.
func RebalanceHandler(ctrl lifecycleController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload rebalancePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid rebalance payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		if len(payload.Weights) == 0 {
			http.Error(w, "weights are required", http.StatusBadRequest)
			return
		}

		writeResult(w, ctrl.Rebalance(r.Context(), payload.Weights))
	}
}

type allocationsResponse struct {
	AccountValue    decimal.Decimal            `json:"account_value"`
	TotalAllocation decimal.Decimal            `json:"total_allocation"`
	Allocations     []portfolio.AllocationView `json:"allocations"`
}

// AllocationsHandler reports the ledger snapshot.
func AllocationsHandler(ledger allocationReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := allocationsResponse{
			AccountValue:    ledger.AccountValue(),
			TotalAllocation: ledger.TotalAllocationPercentage(),
			Allocations:     ledger.Snapshot(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.WithError(err).Error("failed to encode allocations response")
		}
	}
}

type signalsResponse struct {
	Strategies []model.StrategyConfig                    `json:"strategies"`
	Signals    map[string]map[string]model.TradingSignal `json:"signals"`
}

// SignalsHandler reports the configured strategies and their most recent
// signals, including HOLD-on-error entries.
func SignalsHandler(coord signalReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := signalsResponse{
			Strategies: coord.Strategies(),
			Signals:    coord.ActiveSignals(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.WithError(err).Error("failed to encode signals response")
		}
	}
}

func writeResult(w http.ResponseWriter, result lifecycle.Result) {
	w.Header().Set("Content-Type", "application/json")
	if !result.Success {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.WithError(err).Error("failed to encode lifecycle result")
	}
}
