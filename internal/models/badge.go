package models

import (
	"encoding/json"
	"time"
)

// Badge represents a badge that can be earned by users.
type Badge struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Icon        string          `gorm:"size:50" json:"icon"`
	Criteria    json.RawMessage `gorm:"type:jsonb" json:"criteria"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// Badge criteria metrics, all computed over the hunt completion log.
const (
	MetricCategoryCompletions   = "category_completions"   // completions in Filter category
	MetricDifficultyCompletions = "difficulty_completions" // completions at Filter difficulty
	MetricCompletionTime        = "completion_time"        // minutes of the run just finished
	MetricCompletedHunts        = "completed_hunts"        // total completions
)

// Badge criteria operators beyond plain comparisons.
const (
	OperatorRecord = "record" // the run just finished holds the global fastest time
	OperatorLeader = "leader" // the user's value is >= every other user's value
)

// BadgeCriteria represents the criteria for earning a badge.
type BadgeCriteria struct {
	Metric   string  `json:"metric" yaml:"metric"`
	Filter   string  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Operator string  `json:"operator" yaml:"operator"` // "<", "<=", ">", ">=", "==", "record", "leader"
	Value    float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

// UserBadge represents a badge earned by a user. (UserID, BadgeID) is unique.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID  uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	HuntID   *uint     `json:"hunt_id,omitempty"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}
