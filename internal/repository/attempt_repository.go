package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trailquest/trailquest/internal/models"
)

// AttemptRepository handles per-clue attempt counters.
type AttemptRepository struct {
	db *DB
}

// NewAttemptRepository creates a new attempt repository.
func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

var attemptConflict = []clause.Column{{Name: "user_id"}, {Name: "clue_id"}}

// Find returns the attempt row or nil when the user never missed the clue.
func (r *AttemptRepository) Find(userID, clueID uint) (*models.ClueAttempt, error) {
	var attempts []models.ClueAttempt
	err := r.db.
		Where("user_id = ? AND clue_id = ?", userID, clueID).
		Limit(1).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt for user %d clue %d: %w", userID, clueID, err)
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	return &attempts[0], nil
}

// IncrementIncorrect adds one miss, creating the row at 1 when absent.
func (r *AttemptRepository) IncrementIncorrect(userID, huntID, clueID uint) (*models.ClueAttempt, error) {
	now := time.Now()
	row := &models.ClueAttempt{
		UserID:            userID,
		HuntID:            huntID,
		ClueID:            clueID,
		IncorrectAttempts: 1,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: attemptConflict,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"incorrect_attempts": gorm.Expr("clue_attempts.incorrect_attempts + 1"),
			"updated_at":         now,
		}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record incorrect attempt: %w", err)
	}
	return r.mustFind(userID, clueID)
}

// SetHintViewed sets the hint flag, creating the row when absent.
func (r *AttemptRepository) SetHintViewed(userID, huntID, clueID uint) (*models.ClueAttempt, error) {
	return r.upsertFlag(userID, huntID, clueID, "hint_viewed", &models.ClueAttempt{HintViewed: true})
}

// SetBypassed sets the bypass flag, creating the row when absent.
func (r *AttemptRepository) SetBypassed(userID, huntID, clueID uint) (*models.ClueAttempt, error) {
	return r.upsertFlag(userID, huntID, clueID, "bypassed", &models.ClueAttempt{Bypassed: true})
}

func (r *AttemptRepository) upsertFlag(userID, huntID, clueID uint, column string, row *models.ClueAttempt) (*models.ClueAttempt, error) {
	row.UserID = userID
	row.HuntID = huntID
	row.ClueID = clueID
	err := r.db.Clauses(clause.OnConflict{
		Columns: attemptConflict,
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       true,
			"updated_at": time.Now(),
		}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", column, err)
	}
	return r.mustFind(userID, clueID)
}

func (r *AttemptRepository) mustFind(userID, clueID uint) (*models.ClueAttempt, error) {
	var attempt models.ClueAttempt
	err := r.db.Where("user_id = ? AND clue_id = ?", userID, clueID).First(&attempt).Error
	if err != nil {
		return nil, notFound(err, "attempt for user %d clue %d", userID, clueID)
	}
	return &attempt, nil
}

// FirstAttemptAt returns when the user first touched any clue of the hunt,
// or nil if there is no attempt row.
func (r *AttemptRepository) FirstAttemptAt(userID, huntID uint) (*time.Time, error) {
	var attempts []models.ClueAttempt
	err := r.db.
		Where("user_id = ? AND hunt_id = ?", userID, huntID).
		Order("created_at ASC").
		Limit(1).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get first attempt for user %d hunt %d: %w", userID, huntID, err)
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	return &attempts[0].CreatedAt, nil
}
