package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"strategycoordinator/src/database"
	"strategycoordinator/src/model"
)

// ExecutionLogRepository handles persistence for ExecutionLog entities.
type ExecutionLogRepository struct {
	db *gorm.DB
}

// NewExecutionLogRepository creates a new repository instance using the main read/write database.
func NewExecutionLogRepository() *ExecutionLogRepository {
	logger.WithField("component", "ExecutionLogRepository").
		Info("Creating new ExecutionLogRepository with MainDB")

	return &ExecutionLogRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *ExecutionLogRepository) WithDB(db *gorm.DB) *ExecutionLogRepository {
	logger.WithField("component", "ExecutionLogRepository").
		Debug("Creating ExecutionLogRepository with custom DB instance")

	return &ExecutionLogRepository{db: db}
}

// Create inserts a new execution audit row into the database.
// The given entity will be updated with the generated ID and timestamps.
func (r *ExecutionLogRepository) Create(
	ctx context.Context,
	row *model.ExecutionLog,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "ExecutionLogRepository",
		"op":          "Create",
		"strategy_id": row.StrategyID,
		"symbol":      row.Symbol,
		"status":      row.Status,
	}).Debug("Creating new execution log row")

	err := r.db.WithContext(ctx).Create(row).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "ExecutionLogRepository",
			"op":          "Create",
			"strategy_id": row.StrategyID,
			"symbol":      row.Symbol,
		}).WithError(err).Error("Failed to create execution log row")

		return err
	}

	return nil
}

// FindLatest returns the latest execution rows ordered from newest to oldest.
func (r *ExecutionLogRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.ExecutionLog, error) {

	if limit <= 0 {
		limit = 20
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "ExecutionLogRepository",
		"op":    "FindLatest",
		"limit": limit,
	}).Debug("Fetching latest execution log rows")

	var rows []model.ExecutionLog

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "ExecutionLogRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest execution log rows")

		return nil, err
	}

	return rows, nil
}

// FindLatestByStrategy returns the latest execution rows for a strategy,
// ordered from newest to oldest.
func (r *ExecutionLogRepository) FindLatestByStrategy(
	ctx context.Context,
	strategyID string,
	limit int,
) ([]model.ExecutionLog, error) {

	if limit <= 0 {
		limit = 20
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "ExecutionLogRepository",
		"op":          "FindLatestByStrategy",
		"strategy_id": strategyID,
		"limit":       limit,
	}).Debug("Fetching latest execution log rows by strategy")

	var rows []model.ExecutionLog

	err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "ExecutionLogRepository",
			"op":          "FindLatestByStrategy",
			"strategy_id": strategyID,
			"limit":       limit,
		}).WithError(err).Error("Failed to fetch latest execution log rows by strategy")

		return nil, err
	}

	return rows, nil
}
