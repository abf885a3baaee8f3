package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/infrastructure/mail"
)

type stubUsers struct {
	staff    []domain.User
	customer *domain.User
}

func (s *stubUsers) Create(ctx context.Context, user *domain.User) error { return nil }

func (s *stubUsers) FindById(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.customer != nil && s.customer.ID == id {
		return s.customer, nil
	}
	return nil, nil
}

func (s *stubUsers) FindStaffByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.User, error) {
	return s.staff, nil
}

type stubNotifications struct {
	created []domain.Notification
}

func (s *stubNotifications) Create(ctx context.Context, n *domain.Notification) error {
	s.created = append(s.created, *n)
	return nil
}

func (s *stubNotifications) ListByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.Notification, error) {
	return s.created, nil
}

func (s *stubNotifications) MarkRead(ctx context.Context, id uuid.UUID) error { return nil }

// flakySender fails for addresses listed in failFor and records every
// successful delivery.
type flakySender struct {
	mu      sync.Mutex
	failFor map[string]bool
	sent    []string
}

func (s *flakySender) Send(ctx context.Context, to, subject, html string, attachment []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[to] {
		return errors.New("smtp: connection refused")
	}
	s.sent = append(s.sent, to)
	return nil
}

func staffUser(workspaceId uuid.UUID, email string) domain.User {
	return domain.User{ID: uuid.New(), WorkspaceID: workspaceId, Email: email, Name: email, Role: domain.RoleStaff}
}

func testOrder(workspaceId, userId uuid.UUID) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		WorkspaceID: workspaceId,
		UserID:      userId,
		Status:      domain.OrderPending,
		TotalAmount: decimal.RequireFromString("42.00"),
	}
}

func TestFanoutDeliversToStaffAndCustomer(t *testing.T) {
	t.Parallel()

	workspaceId := uuid.New()
	customer := domain.User{ID: uuid.New(), WorkspaceID: workspaceId, Email: "buyer@example.test", Name: "Buyer", Role: domain.RoleCustomer}
	users := &stubUsers{
		staff:    []domain.User{staffUser(workspaceId, "owner@example.test"), staffUser(workspaceId, "staff@example.test")},
		customer: &customer,
	}
	notifications := &stubNotifications{}
	sender := &flakySender{}

	f := NewFanout(users, notifications, mail.BasicRenderer{}, sender, nil)
	f.OrderEvent(context.Background(), testOrder(workspaceId, customer.ID), domain.NotifyOrderCreated)

	require.Len(t, notifications.created, 1)
	require.Equal(t, domain.NotifyOrderCreated, notifications.created[0].Kind)
	require.ElementsMatch(t, []string{"owner@example.test", "staff@example.test", "buyer@example.test"}, sender.sent)
}

func TestFanoutDeduplicatesStaffPlacer(t *testing.T) {
	t.Parallel()

	workspaceId := uuid.New()
	owner := staffUser(workspaceId, "owner@example.test")
	users := &stubUsers{staff: []domain.User{owner}}
	sender := &flakySender{}

	f := NewFanout(users, &stubNotifications{}, mail.BasicRenderer{}, sender, nil)
	f.OrderEvent(context.Background(), testOrder(workspaceId, owner.ID), domain.NotifyOrderCreated)

	require.Equal(t, []string{"owner@example.test"}, sender.sent)
}

func TestFanoutPartialFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	workspaceId := uuid.New()
	users := &stubUsers{staff: []domain.User{
		staffUser(workspaceId, "ok@example.test"),
		staffUser(workspaceId, "broken@example.test"),
		staffUser(workspaceId, "also-ok@example.test"),
	}}
	sender := &flakySender{failFor: map[string]bool{"broken@example.test": true}}

	f := NewFanout(users, &stubNotifications{}, mail.BasicRenderer{}, sender, nil)
	order := testOrder(workspaceId, users.staff[0].ID)

	result := f.NotifyOrderEvent(context.Background(), order, domain.NotifyOrderCancelled, users.staff)
	require.Equal(t, 2, result.Sent)
	require.Len(t, result.Failed, 1)
	require.True(t, result.PartialFailure())
	require.Equal(t, users.staff[1].ID, result.Failed[0].UserID)
	require.ElementsMatch(t, []string{"ok@example.test", "also-ok@example.test"}, sender.sent)
}

func TestFanoutAllDelivered(t *testing.T) {
	t.Parallel()

	workspaceId := uuid.New()
	recipients := []domain.User{staffUser(workspaceId, "a@example.test"), staffUser(workspaceId, "b@example.test")}
	sender := &flakySender{}

	f := NewFanout(&stubUsers{staff: recipients}, &stubNotifications{}, mail.BasicRenderer{}, sender, nil)
	result := f.NotifyOrderEvent(context.Background(), testOrder(workspaceId, recipients[0].ID), domain.NotifyOrderStatus, recipients)

	require.Equal(t, 2, result.Sent)
	require.False(t, result.PartialFailure())
}
