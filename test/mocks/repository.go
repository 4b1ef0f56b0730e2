package mocks

import (
	"fmt"
	"sync"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
)

// MockUserRepository is a simple in-memory user repository.
type MockUserRepository struct {
	mu    sync.Mutex
	Users map[uint]*models.User

	EnsureFunc func(viewer models.Viewer) (*models.User, error)
	Ensured    []models.Viewer
}

// NewMockUserRepository returns a repository holding users.
func NewMockUserRepository(users ...*models.User) *MockUserRepository {
	m := &MockUserRepository{Users: make(map[uint]*models.User)}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.Users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	return user, nil
}

func (m *MockUserRepository) Ensure(viewer models.Viewer) (*models.User, error) {
	if m.EnsureFunc != nil {
		return m.EnsureFunc(viewer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Ensured = append(m.Ensured, viewer)
	user, ok := m.Users[viewer.UserID]
	if !ok {
		user = &models.User{ID: viewer.UserID, Email: viewer.Email, IsAdmin: viewer.IsAdmin}
		m.Users[viewer.UserID] = user
	}
	return user, nil
}
