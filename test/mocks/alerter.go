package mocks

import (
	"context"
	"sync"

	"github.com/trailquest/trailquest/internal/notify"
)

// MockAlerter records alerts instead of posting them.
type MockAlerter struct {
	mu       sync.Mutex
	Rejected []notify.DeploymentAlert
	Messages []string

	// Err, when set, is returned by every call.
	Err error
}

// DeploymentRejected records the alert.
func (m *MockAlerter) DeploymentRejected(ctx context.Context, alert notify.DeploymentAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected = append(m.Rejected, alert)
	return m.Err
}

// SendSimpleMessage records the text.
func (m *MockAlerter) SendSimpleMessage(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, text)
	return m.Err
}
