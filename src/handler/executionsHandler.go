package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

// executionSearcher is the slice of the execution journal the handler
// needs.
type executionSearcher interface {
	FindLatest(ctx context.Context, limit int) ([]model.ExecutionLog, error)
	FindLatestByStrategy(ctx context.Context, strategyID string, limit int) ([]model.ExecutionLog, error)
}

type executionsResponse struct {
	Executions []model.ExecutionLog `json:"executions"`
}

// ExecutionsHandler reports the latest journaled execution attempts,
// newest first. Optional query params: strategyId filters to one
// strategy, limit caps the row count.
func ExecutionsHandler(journal executionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		var (
			rows []model.ExecutionLog
			err  error
		)
		if strategyID := r.URL.Query().Get("strategyId"); strategyID != "" {
			rows, err = journal.FindLatestByStrategy(r.Context(), strategyID, limit)
		} else {
			rows, err = journal.FindLatest(r.Context(), limit)
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch execution rows")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		if rows == nil {
			rows = []model.ExecutionLog{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(executionsResponse{Executions: rows}); err != nil {
			logger.WithError(err).Error("failed to encode executions response")
		}
	}
}
