package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Session is an opened payment session the customer is redirected to.
type Session struct {
	ID          string
	RedirectURL string
}

// Gateway abstracts the external payment provider. CreateSession opens
// a hosted checkout carrying opaque metadata; CheckStatus asks the
// provider whether a session has been paid, which is the source of
// truth during reconciliation.
type Gateway interface {
	CreateSession(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string, idempotencyKey string) (*Session, error)
	CheckStatus(ctx context.Context, sessionId string) (bool, error)
}
