package repository

import (
	"fmt"
	"time"

	"github.com/trailquest/trailquest/internal/models"
)

// CompletionRepository reads and appends the hunt completion log.
type CompletionRepository struct {
	db *DB
}

// NewCompletionRepository creates a new completion repository.
func NewCompletionRepository(db *DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Record appends a completion. Rows are never updated afterwards.
func (r *CompletionRepository) Record(completion *models.HuntCompletion) error {
	if err := r.db.Create(completion).Error; err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// CountByUser returns how many hunts the user completed.
func (r *CompletionRepository) CountByUser(userID uint) (int64, error) {
	return r.count("user_id = ?", userID)
}

// CountByUserAndCategory returns the user's completions within a category.
func (r *CompletionRepository) CountByUserAndCategory(userID uint, category string) (int64, error) {
	return r.count("user_id = ? AND category = ?", userID, category)
}

// CountByUserAndDifficulty returns the user's completions at a difficulty.
func (r *CompletionRepository) CountByUserAndDifficulty(userID uint, difficulty string) (int64, error) {
	return r.count("user_id = ? AND difficulty = ?", userID, difficulty)
}

func (r *CompletionRepository) count(where string, args ...interface{}) (int64, error) {
	var count int64
	err := r.db.Model(&models.HuntCompletion{}).Where(where, args...).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// Fastest returns the record run: lowest completion time, earliest row on ties.
// Returns nil when the log is empty.
func (r *CompletionRepository) Fastest() (*models.HuntCompletion, error) {
	var rows []models.HuntCompletion
	err := r.db.
		Order("completion_time_minutes ASC, id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get fastest completion: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// MaxCompletionsPerUser returns the highest completion count held by any user.
func (r *CompletionRepository) MaxCompletionsPerUser() (int64, error) {
	var row struct {
		UserID uint
		Total  int64
	}
	err := r.db.Model(&models.HuntCompletion{}).
		Select("user_id, COUNT(*) AS total").
		Group("user_id").
		Order("total DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max completions: %w", err)
	}
	return row.Total, nil
}

// ListByUser returns the user's completions, newest first.
func (r *CompletionRepository) ListByUser(userID uint) ([]models.HuntCompletion, error) {
	var rows []models.HuntCompletion
	err := r.db.Where("user_id = ?", userID).Order("completed_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completions for user %d: %w", userID, err)
	}
	return rows, nil
}

// ListBetween returns completions in [start, end), optionally restricted to one category.
func (r *CompletionRepository) ListBetween(start, end time.Time, category string) ([]models.HuntCompletion, error) {
	query := r.db.Where("completed_at >= ? AND completed_at < ?", start, end)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var rows []models.HuntCompletion
	if err := query.Order("completed_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	return rows, nil
}
