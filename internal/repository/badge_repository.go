package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trailquest/trailquest/internal/models"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Create creates a new badge in the database.
func (r *BadgeRepository) Create(badge *models.Badge) error {
	return r.db.Create(badge).Error
}

// GetByID retrieves a badge by its ID.
func (r *BadgeRepository) GetByID(id uint) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.First(&badge, id).Error; err != nil {
		return nil, notFound(err, "badge %d", id)
	}
	return &badge, nil
}

// GetByName retrieves a badge by its name.
func (r *BadgeRepository) GetByName(name string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.Where("name = ?", name).First(&badge).Error; err != nil {
		return nil, notFound(err, "badge %q", name)
	}
	return &badge, nil
}

// GetAll retrieves the badge catalog in creation order.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("id ASC").Find(&badges).Error
	return badges, err
}

// UpsertByName creates the badge or refreshes description, icon and criteria
// of the existing row with the same name. Returns true when a row was created.
func (r *BadgeRepository) UpsertByName(badge *models.Badge) (bool, error) {
	var existing models.Badge
	err := r.db.Where("name = ?", badge.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.Create(badge)
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up badge %q: %w", badge.Name, err)
	}

	existing.Description = badge.Description
	existing.Icon = badge.Icon
	existing.Criteria = badge.Criteria
	if err := r.db.Save(&existing).Error; err != nil {
		return false, fmt.Errorf("failed to update badge %q: %w", badge.Name, err)
	}
	*badge = existing
	return false, nil
}

// AwardBadge awards a badge to a user for the given hunt completion.
// Idempotent: returns false without error when the user already holds it.
func (r *BadgeRepository) AwardBadge(userID, badgeID uint, huntID *uint) (bool, error) {
	exists, err := r.HasUserEarnedBadge(userID, badgeID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	userBadge := &models.UserBadge{
		UserID:   userID,
		BadgeID:  badgeID,
		HuntID:   huntID,
		EarnedAt: time.Now(),
	}
	// The unique (user_id, badge_id) index backs the check above under races.
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(userBadge)
	if result.Error != nil {
		return false, fmt.Errorf("failed to award badge %d to user %d: %w", badgeID, userID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetUserBadges retrieves all badges earned by a user with badge details preloaded.
func (r *BadgeRepository) GetUserBadges(userID uint) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&userBadges).Error
	return userBadges, err
}

// HasUserEarnedBadge checks if a user has earned a specific badge.
func (r *BadgeRepository) HasUserEarnedBadge(userID, badgeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetBadgeHoldersCount returns the number of users who have earned a specific badge.
func (r *BadgeRepository) GetBadgeHoldersCount(badgeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("badge_id = ?", badgeID).
		Count(&count).Error
	return count, err
}

// GetUserBadgeCount returns the number of badges earned by a user.
func (r *BadgeRepository) GetUserBadgeCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
