package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/trailquest/trailquest/internal/gateway"
)

// MockGateway is a function-field double for gateway.Gateway.
// Without funcs set it records initializations and verifies from Transactions.
type MockGateway struct {
	InitializeFunc func(ctx context.Context, req gateway.InitializeRequest) (*gateway.Authorization, error)
	VerifyFunc     func(ctx context.Context, reference string) (*gateway.Transaction, error)

	mu           sync.Mutex
	Initialized  []gateway.InitializeRequest
	Transactions map[string]*gateway.Transaction
	VerifyCalls  int
}

// NewMockGateway creates an empty mock.
func NewMockGateway() *MockGateway {
	return &MockGateway{Transactions: make(map[string]*gateway.Transaction)}
}

// Initialize records the request and returns a fake checkout URL.
func (m *MockGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.Authorization, error) {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Initialized = append(m.Initialized, req)

	return &gateway.Authorization{
		AuthorizationURL: fmt.Sprintf("https://checkout.test/%s", req.Reference),
		Reference:        req.Reference,
	}, nil
}

// Verify returns the stored transaction for reference.
func (m *MockGateway) Verify(ctx context.Context, reference string) (*gateway.Transaction, error) {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[reference]
	if !ok {
		return &gateway.Transaction{Reference: reference, Status: "ongoing"}, nil
	}
	copied := *tx
	return &copied, nil
}

// Succeed registers a successful transaction.
func (m *MockGateway) Succeed(reference string, amountMinor int64, meta gateway.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transactions[reference] = &gateway.Transaction{
		Reference: reference,
		Status:    gateway.StatusSuccess,
		Amount:    amountMinor,
		Currency:  "KES",
		Metadata:  meta,
	}
}
