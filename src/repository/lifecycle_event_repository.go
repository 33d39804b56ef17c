package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"strategycoordinator/src/database"
	"strategycoordinator/src/model"
)

// LifecycleEventRepository handles persistence for LifecycleEvent entities.
type LifecycleEventRepository struct {
	db *gorm.DB
}

// NewLifecycleEventRepository creates a new repository instance using the main read/write database.
func NewLifecycleEventRepository() *LifecycleEventRepository {
	logger.WithField("component", "LifecycleEventRepository").
		Info("Creating new LifecycleEventRepository with MainDB")

	return &LifecycleEventRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *LifecycleEventRepository) WithDB(db *gorm.DB) *LifecycleEventRepository {
	logger.WithField("component", "LifecycleEventRepository").
		Debug("Creating LifecycleEventRepository with custom DB instance")

	return &LifecycleEventRepository{db: db}
}

// Create inserts a new lifecycle audit row into the database.
func (r *LifecycleEventRepository) Create(
	ctx context.Context,
	event *model.LifecycleEvent,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "LifecycleEventRepository",
		"op":          "Create",
		"operation":   event.Operation,
		"strategy_id": event.StrategyID,
		"success":     event.Success,
	}).Debug("Creating new lifecycle event row")

	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "LifecycleEventRepository",
			"op":          "Create",
			"operation":   event.Operation,
			"strategy_id": event.StrategyID,
		}).WithError(err).Error("Failed to create lifecycle event row")

		return err
	}

	return nil
}

// FindLatest returns the latest lifecycle events ordered from newest to oldest.
func (r *LifecycleEventRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.LifecycleEvent, error) {

	if limit <= 0 {
		limit = 20
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "LifecycleEventRepository",
		"op":    "FindLatest",
		"limit": limit,
	}).Debug("Fetching latest lifecycle events")

	var events []model.LifecycleEvent

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "LifecycleEventRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest lifecycle events")

		return nil, err
	}

	return events, nil
}
