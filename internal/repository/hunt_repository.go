package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/trailquest/trailquest/internal/models"
)

// HuntRepository handles hunt and clue database operations.
type HuntRepository struct {
	db *DB
}

// NewHuntRepository creates a new hunt repository.
func NewHuntRepository(db *DB) *HuntRepository {
	return &HuntRepository{db: db}
}

// Create inserts a hunt together with any clues attached to it.
func (r *HuntRepository) Create(hunt *models.Hunt) error {
	if err := r.db.Create(hunt).Error; err != nil {
		return fmt.Errorf("failed to create hunt: %w", err)
	}
	return nil
}

// Update saves hunt fields (admin edit).
func (r *HuntRepository) Update(hunt *models.Hunt) error {
	if err := r.db.Omit("Clues").Save(hunt).Error; err != nil {
		return fmt.Errorf("failed to update hunt %d: %w", hunt.ID, err)
	}
	return nil
}

// GetByID retrieves a hunt without its clues.
func (r *HuntRepository) GetByID(id uint) (*models.Hunt, error) {
	var hunt models.Hunt
	if err := r.db.First(&hunt, id).Error; err != nil {
		return nil, notFound(err, "hunt %d", id)
	}
	return &hunt, nil
}

// GetWithClues retrieves a hunt with clues in sequence order.
func (r *HuntRepository) GetWithClues(id uint) (*models.Hunt, error) {
	var hunt models.Hunt
	err := r.db.
		Preload("Clues", func(db *gorm.DB) *gorm.DB { return db.Order("clue_order ASC") }).
		First(&hunt, id).Error
	if err != nil {
		return nil, notFound(err, "hunt %d", id)
	}
	return &hunt, nil
}

// List returns hunts ordered by category then difficulty. Admin-only hunts are
// included only when includeAdminOnly is set.
func (r *HuntRepository) List(includeAdminOnly bool) ([]models.Hunt, error) {
	query := r.db.Model(&models.Hunt{})
	if !includeAdminOnly {
		query = query.Where("admin_only = ?", false)
	}

	var hunts []models.Hunt
	if err := query.Order("category ASC, difficulty ASC, id ASC").Find(&hunts).Error; err != nil {
		return nil, fmt.Errorf("failed to list hunts: %w", err)
	}
	return hunts, nil
}

// Delete removes a hunt and everything that hangs off it.
func (r *HuntRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.ClueAttempt{},
			&models.UserProgress{},
			&models.HuntCompletion{},
			&models.Purchase{},
			&models.UserCreatedHunt{},
			&models.Clue{},
		} {
			if err := tx.Where("hunt_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete dependents of hunt %d: %w", id, err)
			}
		}
		if err := tx.Delete(&models.Hunt{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete hunt %d: %w", id, err)
		}
		return nil
	})
}

// CreateClue inserts a clue.
func (r *HuntRepository) CreateClue(clue *models.Clue) error {
	if clue.Points == 0 {
		clue.Points = models.DefaultCluePoints
	}
	if err := r.db.Create(clue).Error; err != nil {
		return fmt.Errorf("failed to create clue: %w", err)
	}
	return nil
}

// GetClue retrieves a clue by ID.
func (r *HuntRepository) GetClue(id uint) (*models.Clue, error) {
	var clue models.Clue
	if err := r.db.First(&clue, id).Error; err != nil {
		return nil, notFound(err, "clue %d", id)
	}
	return &clue, nil
}

// FindClueByOrder returns the clue at the given position, or nil when the
// sequence has no such position.
func (r *HuntRepository) FindClueByOrder(huntID uint, order int) (*models.Clue, error) {
	var clues []models.Clue
	err := r.db.
		Where("hunt_id = ? AND clue_order = ?", huntID, order).
		Limit(1).
		Find(&clues).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find clue %d of hunt %d: %w", order, huntID, err)
	}
	if len(clues) == 0 {
		return nil, nil
	}
	return &clues[0], nil
}

// CountClues returns the number of clues in a hunt.
func (r *HuntRepository) CountClues(huntID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Clue{}).Where("hunt_id = ?", huntID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clues of hunt %d: %w", huntID, err)
	}
	return count, nil
}

// NextClueOrder returns the order a newly appended clue should take.
func (r *HuntRepository) NextClueOrder(huntID uint) (int, error) {
	var maxOrder *int
	err := r.db.Model(&models.Clue{}).
		Where("hunt_id = ?", huntID).
		Select("MAX(clue_order)").
		Scan(&maxOrder).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get last clue order of hunt %d: %w", huntID, err)
	}
	if maxOrder == nil {
		return 1, nil
	}
	return *maxOrder + 1, nil
}

// SlugExists reports whether a hunt already uses slug.
func (r *HuntRepository) SlugExists(slug string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Hunt{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}
