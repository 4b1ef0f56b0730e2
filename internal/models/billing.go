package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment intent types echoed back by the gateway in transaction metadata.
const (
	PaymentTypeOneTime      = "one-time"
	PaymentTypeSubscription = "subscription"
	PaymentTypeDeployment   = "deployment"
)

// PaymentStatus constants.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Purchase grants one user access to one priced hunt.
type Purchase struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	UserID               uint            `gorm:"not null;index:idx_purchase_user_hunt" json:"user_id"`
	HuntID               uint            `gorm:"not null;index:idx_purchase_user_hunt" json:"hunt_id"`
	AmountPaid           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	PaymentStatus        string          `gorm:"size:20;not null;index" json:"payment_status"`
	TransactionReference string          `gorm:"size:100;uniqueIndex;not null" json:"transaction_reference"`
	CompletedAt          *time.Time      `json:"completed_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Purchase model.
func (Purchase) TableName() string {
	return "purchases"
}

// IsCompleted reports whether the gateway confirmed the payment.
func (p *Purchase) IsCompleted() bool {
	return p.PaymentStatus == PaymentStatusCompleted
}

// Subscription plans.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// SubscriptionStatusActive is the only status written by reconciliation.
const SubscriptionStatusActive = "active"

// Subscription grants blanket access while active and unexpired.
type Subscription struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	Plan                 string    `gorm:"size:20;not null" json:"plan"`
	Status               string    `gorm:"size:20;not null" json:"status"`
	ExpiryDate           time.Time `gorm:"not null;index" json:"expiry_date"`
	TransactionReference string    `gorm:"size:100;uniqueIndex;not null" json:"transaction_reference"`
	CreatedAt            time.Time `json:"created_at"`
}

// TableName specifies the table name for Subscription model.
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActiveAt reports whether the subscription grants access at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiryDate.After(t)
}

// PlanExpiry returns the expiry for a plan started at from.
func PlanExpiry(plan string, from time.Time) (time.Time, bool) {
	switch plan {
	case PlanMonthly:
		return from.AddDate(0, 1, 0), true
	case PlanYearly:
		return from.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// Created hunt statuses.
const (
	CreatedHuntStatusDraft  = "draft"
	CreatedHuntStatusActive = "active"
)

// UserCreatedHunt is the creator-owned lifecycle record of a hunt.
// Status moves draft -> active only through a confirmed deployment payment.
// IsDraft is toggled separately when the creator finalizes authoring.
type UserCreatedHunt struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	HuntID              uint            `gorm:"not null;uniqueIndex" json:"hunt_id"`
	CreatorID           uint            `gorm:"not null;index" json:"creator_id"`
	Status              string          `gorm:"size:20;not null;default:draft" json:"status"`
	IsDraft             bool            `gorm:"not null;default:true" json:"is_draft"`
	DeploymentPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"deployment_price"`
	DeploymentReference *string         `gorm:"size:100;uniqueIndex" json:"deployment_reference,omitempty"`
	DeployedAt          *time.Time      `json:"deployed_at"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	Hunt *Hunt `gorm:"foreignKey:HuntID;constraint:OnDelete:CASCADE" json:"hunt,omitempty"`
}

// TableName specifies the table name for UserCreatedHunt model.
func (UserCreatedHunt) TableName() string {
	return "user_created_hunts"
}

// IsActive reports whether the hunt has been deployed.
func (h *UserCreatedHunt) IsActive() bool {
	return h.Status == CreatedHuntStatusActive
}
