package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockGateway simulates a hosted checkout provider in memory. Sessions
// are created unpaid; MarkPaid simulates the customer completing the
// hosted flow, and AutoPayChance lets the simulator complete a random
// share of sessions immediately.
type MockGateway struct {
	mu       sync.RWMutex
	paid     map[string]bool
	byIdem   map[string]string
	FailNext bool
	// AutoPayChance is the percentage of sessions paid at creation.
	AutoPayChance int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		paid:   make(map[string]bool),
		byIdem: make(map[string]string),
	}
}

func (g *MockGateway) CreateSession(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string, idempotencyKey string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailNext {
		g.FailNext = false
		return nil, errors.New("mock gateway: session creation failed")
	}

	// Same idempotency key returns the same session.
	if id, exists := g.byIdem[idempotencyKey]; exists {
		return &Session{ID: id, RedirectURL: "https://pay.example.test/" + id}, nil
	}

	id := "mock_" + uuid.NewString()
	g.byIdem[idempotencyKey] = id
	g.paid[id] = g.AutoPayChance > 0 && rand.IntN(100) < g.AutoPayChance

	return &Session{ID: id, RedirectURL: "https://pay.example.test/" + id}, nil
}

func (g *MockGateway) CheckStatus(ctx context.Context, sessionId string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	paid, exists := g.paid[sessionId]
	if !exists {
		return false, fmt.Errorf("mock gateway: unknown session %s", sessionId)
	}
	return paid, nil
}

// MarkPaid simulates the customer completing payment for a session.
func (g *MockGateway) MarkPaid(sessionId string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[sessionId] = true
}
