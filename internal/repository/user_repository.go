package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/trailquest/trailquest/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, "user %s", email)
	}
	return &user, nil
}

// Ensure mirrors the authenticated viewer into the users table.
// The external auth service owns the ID; email and admin flag follow the token.
func (r *UserRepository) Ensure(viewer models.Viewer) (*models.User, error) {
	var existing models.User
	err := r.db.First(&existing, viewer.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		email := viewer.Email
		if email == "" {
			email = fmt.Sprintf("user-%d@accounts.invalid", viewer.UserID)
		}
		user := &models.User{ID: viewer.UserID, Email: email, IsAdmin: viewer.IsAdmin}
		if err := r.Create(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", viewer.UserID, err)
	}

	if (viewer.Email == "" || existing.Email == viewer.Email) && existing.IsAdmin == viewer.IsAdmin {
		return &existing, nil
	}
	if viewer.Email != "" {
		existing.Email = viewer.Email
	}
	existing.IsAdmin = viewer.IsAdmin
	existing.UpdatedAt = time.Now()
	if err := r.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &existing, nil
}
