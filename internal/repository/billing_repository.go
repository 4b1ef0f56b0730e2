package repository

import (
	"fmt"
	"time"

	"github.com/trailquest/trailquest/internal/models"
)

// BillingRepository handles purchases, subscriptions and creator hunt deployment rows.
type BillingRepository struct {
	db *DB
}

// NewBillingRepository creates a new billing repository.
func NewBillingRepository(db *DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// CreatePurchase inserts a purchase row.
func (r *BillingRepository) CreatePurchase(purchase *models.Purchase) error {
	if err := r.db.Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

// FindPurchaseByReference returns the purchase for a gateway reference, or nil.
func (r *BillingRepository) FindPurchaseByReference(reference string) (*models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.Where("transaction_reference = ?", reference).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase %s: %w", reference, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetUserPurchase returns the user's purchase of a hunt, preferring a
// completed one over pending ones. Returns nil when none exists.
func (r *BillingRepository) GetUserPurchase(userID, huntID uint) (*models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.
		Where("user_id = ? AND hunt_id = ?", userID, huntID).
		Order(fmt.Sprintf("CASE WHEN payment_status = '%s' THEN 0 ELSE 1 END, id DESC", models.PaymentStatusCompleted)).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase for user %d hunt %d: %w", userID, huntID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// CompletePurchase promotes a pending purchase. Rows already completed are
// left untouched; the return value reports whether this call changed the row.
func (r *BillingRepository) CompletePurchase(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.Purchase{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusCompleted,
			"completed_at":   at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete purchase %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListPendingPurchases returns pending purchases created inside [from, to).
func (r *BillingRepository) ListPendingPurchases(from, to time.Time, limit int) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.
		Where("payment_status = ? AND created_at >= ? AND created_at < ?", models.PaymentStatusPending, from, to).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending purchases: %w", err)
	}
	return rows, nil
}

// CreateSubscription inserts a subscription row.
func (r *BillingRepository) CreateSubscription(sub *models.Subscription) error {
	if err := r.db.Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// FindSubscriptionByReference returns the subscription created for a gateway reference, or nil.
func (r *BillingRepository) FindSubscriptionByReference(reference string) (*models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.Where("transaction_reference = ?", reference).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription %s: %w", reference, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// HasActiveSubscription reports whether the user holds an active, unexpired subscription at t.
func (r *BillingRepository) HasActiveSubscription(userID uint, at time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ? AND expiry_date > ?", userID, models.SubscriptionStatusActive, at).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check subscription for user %d: %w", userID, err)
	}
	return count > 0, nil
}

// CountSubscriptions returns how many subscription rows a user has.
func (r *BillingRepository) CountSubscriptions(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions for user %d: %w", userID, err)
	}
	return count, nil
}

// CreateCreatedHunt inserts a creator lifecycle row.
func (r *BillingRepository) CreateCreatedHunt(created *models.UserCreatedHunt) error {
	if err := r.db.Create(created).Error; err != nil {
		return fmt.Errorf("failed to create creator hunt: %w", err)
	}
	return nil
}

// FindCreatedHunt returns the creator lifecycle row of a hunt, or nil for catalog hunts.
func (r *BillingRepository) FindCreatedHunt(huntID uint) (*models.UserCreatedHunt, error) {
	var rows []models.UserCreatedHunt
	err := r.db.Where("hunt_id = ?", huntID).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get creator hunt %d: %w", huntID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SaveCreatedHunt persists a creator lifecycle row.
func (r *BillingRepository) SaveCreatedHunt(created *models.UserCreatedHunt) error {
	if err := r.db.Save(created).Error; err != nil {
		return fmt.Errorf("failed to update creator hunt %d: %w", created.ID, err)
	}
	return nil
}
