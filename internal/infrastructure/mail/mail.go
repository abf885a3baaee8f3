package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"workspace-backoffice/internal/domain"
)

// Message is a rendered order email with an optional PDF attachment.
type Message struct {
	Subject string
	HTML    string
	PDF     []byte
}

// Renderer turns an order event into a message. Implementations are
// pure: they produce bytes and never send anything.
type Renderer interface {
	Render(order *domain.Order, user *domain.User, kind domain.NotificationKind) (*Message, error)
}

// Sender delivers one message. Each call may fail independently.
type Sender interface {
	Send(ctx context.Context, to, subject, html string, attachment []byte) error
}

// BasicRenderer is the default plain renderer; deployments swap in a
// template/PDF renderer behind the same interface.
type BasicRenderer struct{}

func (BasicRenderer) Render(order *domain.Order, user *domain.User, kind domain.NotificationKind) (*Message, error) {
	var subject string
	switch kind {
	case domain.NotifyOrderCreated:
		subject = fmt.Sprintf("Order %s placed", order.ID)
	case domain.NotifyOrderCancelled:
		subject = fmt.Sprintf("Order %s cancelled", order.ID)
	default:
		subject = fmt.Sprintf("Order %s is now %s", order.ID, order.Status)
	}
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Order <b>%s</b> total <b>%s</b> is now <b>%s</b>.</p>",
		user.Name, order.ID, order.TotalAmount.StringFixed(2), order.Status,
	)
	return &Message{Subject: subject, HTML: html}, nil
}

// LogSender stands in for the real delivery transport and just logs
// the send.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, html string, attachment []byte) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("attachment_bytes", len(attachment)),
	)
	return nil
}
