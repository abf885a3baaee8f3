package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/infrastructure/payment"
	"workspace-backoffice/internal/repo"
)

// fakeOrders stubs the aggregate builder so checkout routing can be
// tested without a database. buildTime simulates a slow transaction so
// concurrent confirmations can be raced deterministically.
type fakeOrders struct {
	mu        sync.Mutex
	created   []CreateOrderInput
	fail      error
	lastUser  uuid.UUID
	orders    map[uuid.UUID]*OrderDetail
	buildTime time.Duration
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[uuid.UUID]*OrderDetail)}
}

func (f *fakeOrders) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeOrders) CreateOrder(ctx context.Context, input CreateOrderInput, actingUserId uuid.UUID) (*OrderSummary, error) {
	if f.buildTime > 0 {
		time.Sleep(f.buildTime)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.created = append(f.created, input)
	f.lastUser = actingUserId

	order := domain.Order{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Status:      input.Status,
		TotalAmount: decimal.RequireFromString("30.00"),
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}
	f.orders[order.ID] = &OrderDetail{Order: order, Items: make([]domain.OrderItem, len(input.Items))}
	return &OrderSummary{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		ItemCount:   len(input.Items),
	}, nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, orderId uuid.UUID) (*OrderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	detail, ok := f.orders[orderId]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return detail, nil
}

func (f *fakeOrders) ListOrders(ctx context.Context, workspaceId uuid.UUID) ([]domain.Order, error) {
	return nil, nil
}
func (f *fakeOrders) UpdateStatus(ctx context.Context, orderId uuid.UUID, newStatus domain.OrderStatus, actingUserId uuid.UUID, note string) error {
	return nil
}
func (f *fakeOrders) CancelOrder(ctx context.Context, orderId, actingUserId uuid.UUID) (*CancelResult, error) {
	return nil, nil
}
func (f *fakeOrders) CloneOrder(ctx context.Context, orderId uuid.UUID) (*OrderSummary, error) {
	return nil, nil
}
func (f *fakeOrders) Reorder(ctx context.Context, orderId, actingUserId uuid.UUID) (*OrderSummary, error) {
	return nil, nil
}
func (f *fakeOrders) AddOrderItem(ctx context.Context, orderId uuid.UUID, item RequestedItem, actingUserId uuid.UUID) error {
	return nil
}
func (f *fakeOrders) RemoveOrderItem(ctx context.Context, orderId, itemId, actingUserId uuid.UUID) error {
	return nil
}

// memSessions is an in-memory CheckoutSessionRepo. The mutex gives it
// the same one-winner claim semantics as the conditional UPDATE.
type memSessions struct {
	mu        sync.Mutex
	byGateway map[string]*domain.CheckoutSession
}

func newMemSessions() *memSessions {
	return &memSessions{byGateway: make(map[string]*domain.CheckoutSession)}
}

func (m *memSessions) Create(ctx context.Context, session *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.byGateway[session.GatewaySessionID] = &copied
	return nil
}

func (m *memSessions) FindByGatewaySessionId(ctx context.Context, gatewaySessionId string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.byGateway[gatewaySessionId]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *memSessions) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutSessionStatus, orderId *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.byGateway {
		if session.ID == id {
			session.Status = status
			if orderId != nil {
				session.OrderID = orderId
			}
			session.UpdatedAt = time.Now()
			return nil
		}
	}
	return errors.New("session not found")
}

func (m *memSessions) ClaimConfirming(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.byGateway {
		if session.ID != id {
			continue
		}
		if session.Status == domain.CheckoutInit || session.Status == domain.CheckoutExpired {
			session.Status = domain.CheckoutConfirming
			session.UpdatedAt = time.Now()
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (m *memSessions) FindStaleInit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var stale []domain.CheckoutSession
	for _, session := range m.byGateway {
		if session.Status == domain.CheckoutInit && session.CreatedAt.Before(cutoff) {
			stale = append(stale, *session)
		}
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}

func (m *memSessions) statusOf(gatewaySessionId string) domain.CheckoutSessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byGateway[gatewaySessionId].Status
}

// memVariants serves batch lookups from a fixed catalog; the
// transactional stock methods are never reached by checkout itself.
type memVariants struct {
	catalog map[uuid.UUID]domain.ProductVariant
}

func newMemVariants(variants ...domain.ProductVariant) *memVariants {
	m := &memVariants{catalog: make(map[uuid.UUID]domain.ProductVariant)}
	for _, v := range variants {
		m.catalog[v.ID] = v
	}
	return m
}

func (m *memVariants) Create(ctx context.Context, v *domain.ProductVariant) error {
	m.catalog[v.ID] = *v
	return nil
}

func (m *memVariants) FindById(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	v, ok := m.catalog[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *memVariants) FindByIds(ctx context.Context, ids []uuid.UUID) ([]domain.ProductVariant, error) {
	var out []domain.ProductVariant
	for _, id := range ids {
		if v, ok := m.catalog[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVariants) AdjustStock(ctx context.Context, tx *sql.Tx, variantId uuid.UUID, delta int) error {
	return errors.New("not supported in memory")
}
func (m *memVariants) DecrementMany(ctx context.Context, tx *sql.Tx, items []domain.StockAdjustment) error {
	return errors.New("not supported in memory")
}
func (m *memVariants) IncrementMany(ctx context.Context, tx *sql.Tx, items []domain.StockAdjustment) error {
	return errors.New("not supported in memory")
}

var _ repo.CheckoutSessionRepo = (*memSessions)(nil)
var _ repo.VariantRepo = (*memVariants)(nil)
var _ OrderService = (*fakeOrders)(nil)

func checkoutFixture(t *testing.T) (*fakeOrders, *memSessions, *payment.MockGateway, CheckoutService, CreateOrderInput) {
	t.Helper()

	mug := variant("10.00")
	orders := newFakeOrders()
	sessions := newMemSessions()
	gateway := payment.NewMockGateway()
	checkout := NewCheckoutService(orders, sessions, newMemVariants(mug), gateway, "usd", nil)

	address := AddressInput{Line1: "1 Test St", City: "Testville", Country: "US", PostalCode: "12345"}
	input := CreateOrderInput{
		UserID:          uuid.New(),
		Items:           []RequestedItem{{VariantID: mug.ID, Quantity: 3}},
		PaymentMethod:   domain.PaymentOnline,
		ShippingAddress: &address,
		BillingAddress:  &address,
	}
	return orders, sessions, gateway, checkout, input
}

func TestPlaceOrderCashCommitsImmediately(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)
	input.PaymentMethod = domain.PaymentCash

	result, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	require.Empty(t, result.SessionID)
	require.Len(t, orders.created, 1)
	require.Empty(t, sessions.byGateway, "cash checkout must not open a payment session")
}

func TestPlaceOrderOnlineDefersCommit(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)

	result, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)
	require.Nil(t, result.Order, "no order may exist before payment confirmation")
	require.NotEmpty(t, result.SessionID)
	require.NotEmpty(t, result.RedirectURL)
	require.Empty(t, orders.created)

	session := sessions.byGateway[result.SessionID]
	require.NotNil(t, session)
	require.Equal(t, domain.CheckoutInit, session.Status)
	require.Equal(t, "30.00", session.Amount.StringFixed(2))
	require.NotEmpty(t, session.Intent)
}

func TestConfirmPaymentMaterializesProcessingOrder(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)

	placed, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)

	summary, err := checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderProcessing, summary.Status)
	require.Len(t, orders.created, 1)
	require.Equal(t, domain.OrderProcessing, orders.created[0].Status)

	session := sessions.byGateway[placed.SessionID]
	require.Equal(t, domain.CheckoutConfirmed, session.Status)
	require.NotNil(t, session.OrderID)
	require.Equal(t, summary.OrderID, *session.OrderID)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	t.Parallel()

	orders, _, _, checkout, input := checkoutFixture(t)

	placed, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)

	first, err := checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.NoError(t, err)
	second, err := checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.NoError(t, err)

	require.Equal(t, first.OrderID, second.OrderID)
	require.Len(t, orders.created, 1, "duplicate webhook must not create a second order")
}

func TestConfirmPaymentUnknownSession(t *testing.T) {
	t.Parallel()

	_, _, _, checkout, _ := checkoutFixture(t)

	_, err := checkout.ConfirmPayment(context.Background(), "cs_unknown")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestConfirmPaymentOnExpiredSessionStillMaterializes(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)

	placed, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)

	// The sweep expired the session before the late payment landed.
	session := sessions.byGateway[placed.SessionID]
	require.NoError(t, sessions.UpdateStatus(context.Background(), session.ID, domain.CheckoutExpired, nil))

	summary, err := checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.NoError(t, err)
	require.Len(t, orders.created, 1)
	require.Equal(t, domain.CheckoutConfirmed, sessions.byGateway[placed.SessionID].Status)
	require.Equal(t, domain.OrderProcessing, summary.Status)
}

func TestConfirmPaymentUnfulfillableMarksSessionFailed(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)

	placed, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)

	// Stock drained between checkout and confirmation.
	orders.fail = &domain.InsufficientStockError{Violations: []domain.StockViolation{
		{VariantID: input.Items[0].VariantID, SKU: "MUG", Requested: 3, Available: 0},
	}}

	_, err = checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Equal(t, domain.CheckoutFailed, sessions.byGateway[placed.SessionID].Status)
}

// A webhook retry and the reconciliation sweep can confirm the same
// session at the same time; exactly one may materialize the order.
func TestConfirmPaymentConcurrentDuplicatesCollapse(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)
	orders.buildTime = 100 * time.Millisecond

	placed, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := checkout.ConfirmPayment(context.Background(), placed.SessionID)
			results <- err
		}()
	}

	var succeeded, refused int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			require.ErrorIs(t, err, domain.ErrValidation)
			refused++
		} else {
			succeeded++
		}
	}

	require.Equal(t, 1, orders.createdCount(), "one payment must produce exactly one order")
	require.GreaterOrEqual(t, succeeded, 1)
	require.LessOrEqual(t, refused, 1)
	require.Equal(t, domain.CheckoutConfirmed, sessions.statusOf(placed.SessionID))
}

func TestConfirmPaymentTransientFailureReleasesClaim(t *testing.T) {
	t.Parallel()

	orders, sessions, _, checkout, input := checkoutFixture(t)

	placed, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.NoError(t, err)

	// A persistence hiccup, not a fulfillment problem: the session must
	// return to INIT so the next sweep can retry the confirmation.
	orders.fail = &domain.TransactionFailedError{Op: "create order", Err: errors.New("connection reset")}
	_, err = checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.Error(t, err)
	require.Equal(t, domain.CheckoutInit, sessions.statusOf(placed.SessionID))

	orders.fail = nil
	summary, err := checkout.ConfirmPayment(context.Background(), placed.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderProcessing, summary.Status)
	require.Equal(t, domain.CheckoutConfirmed, sessions.statusOf(placed.SessionID))
}

func TestPlaceOrderOnlineGatewayFailure(t *testing.T) {
	t.Parallel()

	_, sessions, gateway, checkout, input := checkoutFixture(t)
	gateway.FailNext = true

	_, err := checkout.PlaceOrder(context.Background(), input, input.UserID)
	require.Error(t, err)
	require.Empty(t, sessions.byGateway, "a failed gateway call must leave no session behind")
}
