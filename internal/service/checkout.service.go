package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/infrastructure/payment"
	"workspace-backoffice/internal/repo"
)

// PlaceOrderResult carries either a committed order (CASH) or the
// payment session the customer must complete (ONLINE).
type PlaceOrderResult struct {
	Order       *OrderSummary `json:"order,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, input CreateOrderInput, actingUserId uuid.UUID) (*PlaceOrderResult, error)
	ConfirmPayment(ctx context.Context, gatewaySessionId string) (*OrderSummary, error)
}

// orderIntent is the opaque metadata attached to a payment session: the
// full order request, frozen until the gateway confirms payment.
type orderIntent struct {
	Input        CreateOrderInput `json:"input"`
	ActingUserID uuid.UUID        `json:"acting_user_id"`
}

type checkoutService struct {
	orders      OrderService
	sessions    repo.CheckoutSessionRepo
	variantRepo repo.VariantRepo
	gateway     payment.Gateway
	currency    string
	logger      *zap.Logger
}

func NewCheckoutService(
	orders OrderService,
	sessions repo.CheckoutSessionRepo,
	variantRepo repo.VariantRepo,
	gateway payment.Gateway,
	currency string,
	logger *zap.Logger,
) CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "usd"
	}
	return &checkoutService{
		orders:      orders,
		sessions:    sessions,
		variantRepo: variantRepo,
		gateway:     gateway,
		currency:    currency,
		logger:      logger,
	}
}

// PlaceOrder routes by payment method. CASH commits the order (and its
// stock) immediately. ONLINE opens a payment session carrying the order
// intent and reserves nothing until the gateway confirms, so abandoned
// checkouts never hold stock.
func (s *checkoutService) PlaceOrder(ctx context.Context, input CreateOrderInput, actingUserId uuid.UUID) (*PlaceOrderResult, error) {
	if input.PaymentMethod == domain.PaymentCash {
		summary, err := s.orders.CreateOrder(ctx, input, actingUserId)
		if err != nil {
			return nil, err
		}
		return &PlaceOrderResult{Order: summary}, nil
	}

	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	variants, err := s.lookupVariants(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	workspaceId, err := singleWorkspace(variants)
	if err != nil {
		return nil, err
	}
	_, total, err := PriceItems(input.Items, variants)
	if err != nil {
		return nil, err
	}

	intent, err := json.Marshal(orderIntent{Input: input, ActingUserID: actingUserId})
	if err != nil {
		return nil, fmt.Errorf("checkout: marshal intent: %w", err)
	}

	sessionId := uuid.New()
	gatewaySession, err := s.gateway.CreateSession(ctx, total, s.currency,
		map[string]string{"checkout_session_id": sessionId.String()}, sessionId.String())
	if err != nil {
		return nil, fmt.Errorf("checkout: open payment session: %w", err)
	}

	now := time.Now()
	if err := s.sessions.Create(ctx, &domain.CheckoutSession{
		ID:               sessionId,
		WorkspaceID:      workspaceId,
		Status:           domain.CheckoutInit,
		GatewaySessionID: gatewaySession.ID,
		Intent:           intent,
		Amount:           total,
		CreatedAt:        now,
		UpdatedAt:        now,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("payment session opened",
		zap.String("session_id", sessionId.String()),
		zap.String("gateway_session_id", gatewaySession.ID),
		zap.String("amount", total.StringFixed(2)),
	)

	return &PlaceOrderResult{
		SessionID:   gatewaySession.ID,
		RedirectURL: gatewaySession.RedirectURL,
	}, nil
}

// ConfirmPayment materializes the order for a paid session. Stock is
// checked and committed at this moment, not at session creation.
// Confirming an already-confirmed session is idempotent, and a
// conditional claim admits exactly one of any racing confirmations
// (webhook retries can race the reconciliation sweep).
func (s *checkoutService) ConfirmPayment(ctx context.Context, gatewaySessionId string) (*OrderSummary, error) {
	session, err := s.sessions.FindByGatewaySessionId(ctx, gatewaySessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, gatewaySessionId)
	}
	if session.Status == domain.CheckoutConfirmed {
		return s.summaryFor(ctx, session)
	}

	// Claim the session before building anything. EXPIRED sessions are
	// still claimable: the sweep may have expired a session whose
	// payment completed late.
	claimed, err := s.sessions.ClaimConfirming(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the claim or the session is not confirmable. If the
		// winner already finished, answer idempotently.
		current, err := s.sessions.FindByGatewaySessionId(ctx, gatewaySessionId)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, gatewaySessionId)
		}
		if current.Status == domain.CheckoutConfirmed {
			return s.summaryFor(ctx, current)
		}
		return nil, fmt.Errorf("%w: session %s is %s", domain.ErrValidation, current.ID, current.Status)
	}

	var intent orderIntent
	if err := json.Unmarshal(session.Intent, &intent); err != nil {
		if updateErr := s.sessions.UpdateStatus(ctx, session.ID, domain.CheckoutFailed, nil); updateErr != nil {
			s.logger.Error("mark session failed", zap.Error(updateErr))
		}
		return nil, fmt.Errorf("checkout: unmarshal intent for session %s: %w", session.ID, err)
	}

	// Payment is committed, so the order starts in PROCESSING and the
	// aggregate builder decrements stock inside its transaction.
	intent.Input.Status = domain.OrderProcessing

	summary, err := s.orders.CreateOrder(ctx, intent.Input, intent.ActingUserID)
	if err != nil {
		s.logger.Error("paid session could not be materialized",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
		// Transient persistence failures release the claim so the next
		// sweep retries; anything else means the customer has paid but
		// the order cannot be fulfilled, flagged for operator follow-up.
		next := domain.CheckoutFailed
		var txErr *domain.TransactionFailedError
		if errors.As(err, &txErr) {
			next = session.Status
		}
		if updateErr := s.sessions.UpdateStatus(ctx, session.ID, next, nil); updateErr != nil {
			s.logger.Error("release session claim", zap.Error(updateErr))
		}
		return nil, err
	}

	if err := s.sessions.UpdateStatus(ctx, session.ID, domain.CheckoutConfirmed, &summary.OrderID); err != nil {
		// The order exists; losing the session pointer is recoverable
		// on the next webhook retry via the idempotent branch above.
		s.logger.Error("mark session confirmed", zap.Error(err))
	}
	return summary, nil
}

func (s *checkoutService) summaryFor(ctx context.Context, session *domain.CheckoutSession) (*OrderSummary, error) {
	if session.OrderID == nil {
		return nil, fmt.Errorf("checkout: confirmed session %s has no order", session.ID)
	}
	detail, err := s.orders.GetOrder(ctx, *session.OrderID)
	if err != nil {
		return nil, err
	}
	return &OrderSummary{
		OrderID:     detail.Order.ID,
		TotalAmount: detail.Order.TotalAmount,
		Status:      detail.Order.Status,
		ItemCount:   len(detail.Items),
		Message:     "order already confirmed",
	}, nil
}

// lookupVariants mirrors the aggregate builder's batch lookup for the
// price preview; the authoritative lookup happens again at confirm.
func (s *checkoutService) lookupVariants(ctx context.Context, items []RequestedItem) ([]domain.ProductVariant, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.variantRepo.FindByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]bool, len(variants))
	for _, v := range variants {
		found[v.ID] = true
	}
	for _, item := range items {
		if !found[item.VariantID] {
			return nil, fmt.Errorf("%w: %s", domain.ErrVariantNotFound, item.VariantID)
		}
	}
	return variants, nil
}
