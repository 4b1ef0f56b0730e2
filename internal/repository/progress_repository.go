package repository

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/trailquest/trailquest/internal/models"
)

// ProgressRepository handles per-user hunt progress rows.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Find returns the progress row or nil when the user has not started the hunt.
func (r *ProgressRepository) Find(userID, huntID uint) (*models.UserProgress, error) {
	return r.find(userID, huntID, false)
}

// FindForUpdate is Find with a row lock held until the transaction ends.
func (r *ProgressRepository) FindForUpdate(userID, huntID uint) (*models.UserProgress, error) {
	return r.find(userID, huntID, true)
}

func (r *ProgressRepository) find(userID, huntID uint, lock bool) (*models.UserProgress, error) {
	query := r.db.Where("user_id = ? AND hunt_id = ?", userID, huntID)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.UserProgress
	if err := query.Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get progress for user %d hunt %d: %w", userID, huntID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Create inserts a progress row.
func (r *ProgressRepository) Create(progress *models.UserProgress) error {
	if err := r.db.Create(progress).Error; err != nil {
		return fmt.Errorf("failed to create progress: %w", err)
	}
	return nil
}

// Save persists every field of a progress row, including nil pointers.
func (r *ProgressRepository) Save(progress *models.UserProgress) error {
	if err := r.db.Save(progress).Error; err != nil {
		return fmt.Errorf("failed to update progress %d: %w", progress.ID, err)
	}
	return nil
}

// ListByUser returns all progress rows of a user, most recent first.
func (r *ProgressRepository) ListByUser(userID uint) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress for user %d: %w", userID, err)
	}
	return rows, nil
}
