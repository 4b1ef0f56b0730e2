package models

import (
	"time"
)

// ClueAttempt tracks the failure history of one user on one clue.
// Rows are created lazily and never decremented.
type ClueAttempt struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex:idx_attempt_user_clue" json:"user_id"`
	HuntID            uint      `gorm:"not null;index" json:"hunt_id"`
	ClueID            uint      `gorm:"not null;uniqueIndex:idx_attempt_user_clue" json:"clue_id"`
	IncorrectAttempts int       `gorm:"not null;default:0" json:"incorrect_attempts"`
	HintViewed        bool      `gorm:"not null;default:false" json:"hint_viewed"`
	Bypassed          bool      `gorm:"not null;default:false" json:"bypassed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for ClueAttempt model.
func (ClueAttempt) TableName() string {
	return "clue_attempts"
}

// UserProgress is the per-user, per-hunt pointer into the clue sequence.
// CurrentClueID is nil exactly when Completed is true; use State to read it.
type UserProgress struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	UserID                uint       `gorm:"not null;uniqueIndex:idx_progress_user_hunt" json:"user_id"`
	HuntID                uint       `gorm:"not null;uniqueIndex:idx_progress_user_hunt;index" json:"hunt_id"`
	CurrentClueID         *uint      `json:"current_clue_id"`
	TotalPoints           int        `gorm:"not null;default:0" json:"total_points"`
	Completed             bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletionTimeMinutes *int       `json:"completion_time_minutes"`
	StartedAt             time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName specifies the table name for UserProgress model.
func (UserProgress) TableName() string {
	return "user_progress"
}

// ProgressState is either InProgress or Completed.
type ProgressState interface {
	isProgressState()
}

// InProgress means the user still has CurrentClueID to solve.
type InProgress struct {
	CurrentClueID uint
}

// Completed means the clue sequence was exhausted.
type Completed struct {
	CompletedAt           time.Time
	CompletionTimeMinutes int
}

func (InProgress) isProgressState() {}
func (Completed) isProgressState()  {}

// State returns the tagged view of the row.
func (p *UserProgress) State() ProgressState {
	if p.Completed {
		c := Completed{}
		if p.CompletedAt != nil {
			c.CompletedAt = *p.CompletedAt
		}
		if p.CompletionTimeMinutes != nil {
			c.CompletionTimeMinutes = *p.CompletionTimeMinutes
		}
		return c
	}
	var current uint
	if p.CurrentClueID != nil {
		current = *p.CurrentClueID
	}
	return InProgress{CurrentClueID: current}
}

// MarkInProgress points the row at the next clue.
func (p *UserProgress) MarkInProgress(nextClueID uint) {
	p.CurrentClueID = &nextClueID
	p.Completed = false
}

// MarkCompleted closes the row. Elapsed minutes are rounded to the nearest minute.
func (p *UserProgress) MarkCompleted(at time.Time) {
	minutes := int(at.Sub(p.StartedAt).Round(time.Minute) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	p.CurrentClueID = nil
	p.Completed = true
	p.CompletedAt = &at
	p.CompletionTimeMinutes = &minutes
}

// HuntCompletion is an append-only log row written once per finished hunt run.
// Record-holder badges are evaluated against this log.
type HuntCompletion struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"not null;index" json:"user_id"`
	HuntID                uint      `gorm:"not null;index" json:"hunt_id"`
	ProgressID            uint      `gorm:"not null;uniqueIndex" json:"progress_id"`
	Category              string    `gorm:"size:100;index" json:"category"`
	Difficulty            string    `gorm:"size:50;index" json:"difficulty"`
	TotalPoints           int       `json:"total_points"`
	CompletionTimeMinutes int       `gorm:"not null" json:"completion_time_minutes"`
	CompletedAt           time.Time `gorm:"not null;index" json:"completed_at"`
}

// TableName specifies the table name for HuntCompletion model.
func (HuntCompletion) TableName() string {
	return "hunt_completions"
}
