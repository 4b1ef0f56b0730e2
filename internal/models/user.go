// Package models defines domain models for hunts, play state, billing and badges.
package models

import (
	"time"
)

// User is the local mirror of an account owned by the external auth service.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Username  string    `gorm:"size:100" json:"username"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// Viewer is the authenticated identity attached to a request.
type Viewer struct {
	UserID  uint
	Email   string
	IsAdmin bool
}
