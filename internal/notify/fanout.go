package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/infrastructure/mail"
	"workspace-backoffice/internal/repo"
)

// FailedRecipient records one recipient whose send failed.
type FailedRecipient struct {
	UserID uuid.UUID
	Reason string
}

// FanoutResult is delivery telemetry, never an error: the order
// operation that triggered the fan-out has already committed.
type FanoutResult struct {
	Sent   int
	Failed []FailedRecipient
}

func (r FanoutResult) PartialFailure() bool { return len(r.Failed) > 0 }

// Fanout dispatches order events to workspace staff and the customer.
// It implements service.OrderNotifier.
type Fanout struct {
	users         repo.UserRepo
	notifications repo.NotificationRepo
	renderer      mail.Renderer
	sender        mail.Sender
	logger        *zap.Logger
}

func NewFanout(
	users repo.UserRepo,
	notifications repo.NotificationRepo,
	renderer mail.Renderer,
	sender mail.Sender,
	logger *zap.Logger,
) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{
		users:         users,
		notifications: notifications,
		renderer:      renderer,
		sender:        sender,
		logger:        logger,
	}
}

// OrderEvent records an internal notification and fans the event out to
// every recipient. All failures are logged and swallowed; the caller
// has already committed its transaction and must not be affected.
func (f *Fanout) OrderEvent(ctx context.Context, order *domain.Order, kind domain.NotificationKind) {
	recipients, err := f.resolveRecipients(ctx, order)
	if err != nil {
		f.logger.Error("resolve notification recipients",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return
	}

	if err := f.notifications.Create(ctx, &domain.Notification{
		ID:          uuid.New(),
		WorkspaceID: order.WorkspaceID,
		UserID:      order.UserID,
		Kind:        kind,
		OrderID:     order.ID,
		Message:     fmt.Sprintf("order %s: %s", order.ID, kind),
		CreatedAt:   time.Now(),
	}); err != nil {
		f.logger.Error("create notification record",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	result := f.NotifyOrderEvent(ctx, order, kind, recipients)
	if result.PartialFailure() {
		f.logger.Warn("notification fan-out partial failure",
			zap.String("order_id", order.ID.String()),
			zap.Int("sent", result.Sent),
			zap.Int("failed", len(result.Failed)),
		)
	}
}

// NotifyOrderEvent sends to every recipient concurrently. One
// recipient's failure never blocks or fails the others.
func (f *Fanout) NotifyOrderEvent(ctx context.Context, order *domain.Order, kind domain.NotificationKind, recipients []domain.User) FanoutResult {
	var (
		mu     sync.Mutex
		result FanoutResult
		wg     sync.WaitGroup
	)

	for _, recipient := range recipients {
		wg.Add(1)
		go func(user domain.User) {
			defer wg.Done()

			msg, err := f.renderer.Render(order, &user, kind)
			if err == nil {
				err = f.sender.Send(ctx, user.Email, msg.Subject, msg.HTML, msg.PDF)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, FailedRecipient{UserID: user.ID, Reason: err.Error()})
				return
			}
			result.Sent++
		}(recipient)
	}

	wg.Wait()
	return result
}

// resolveRecipients is workspace staff plus the order's customer,
// de-duplicated (the placer may themselves be staff).
func (f *Fanout) resolveRecipients(ctx context.Context, order *domain.Order) ([]domain.User, error) {
	staff, err := f.users.FindStaffByWorkspace(ctx, order.WorkspaceID)
	if err != nil {
		return nil, err
	}

	recipients := staff
	seen := make(map[uuid.UUID]bool, len(staff))
	for _, u := range staff {
		seen[u.ID] = true
	}

	if !seen[order.UserID] {
		customer, err := f.users.FindById(ctx, order.UserID)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			recipients = append(recipients, *customer)
		}
	}
	return recipients, nil
}
