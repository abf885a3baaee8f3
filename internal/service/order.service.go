package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/repo"
)

// OrderNotifier receives order events after the transaction commits.
// Implementations must be safe to call from a detached goroutine and
// must swallow their own failures.
type OrderNotifier interface {
	OrderEvent(ctx context.Context, order *domain.Order, kind domain.NotificationKind)
}

type AddressInput struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	Country    string `json:"country" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

type CreateOrderInput struct {
	UserID            uuid.UUID            `json:"user_id"`
	Items             []RequestedItem      `json:"items"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method"`
	ShippingAddressID *uuid.UUID           `json:"shipping_address_id,omitempty"`
	ShippingAddress   *AddressInput        `json:"shipping_address,omitempty"`
	BillingAddressID  *uuid.UUID           `json:"billing_address_id,omitempty"`
	BillingAddress    *AddressInput        `json:"billing_address,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	Status            domain.OrderStatus   `json:"status,omitempty"`
}

type OrderSummary struct {
	OrderID     uuid.UUID       `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      domain.OrderStatus `json:"status"`
	ItemCount   int             `json:"item_count"`
	Message     string          `json:"message"`
}

type OrderDetail struct {
	Order   domain.Order               `json:"order"`
	Items   []domain.OrderItem         `json:"items"`
	History []domain.OrderStatusHistory `json:"history"`
}

type CancelResult struct {
	Message string             `json:"message"`
	Status  domain.OrderStatus `json:"status"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput, actingUserId uuid.UUID) (*OrderSummary, error)
	GetOrder(ctx context.Context, orderId uuid.UUID) (*OrderDetail, error)
	ListOrders(ctx context.Context, workspaceId uuid.UUID) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderId uuid.UUID, newStatus domain.OrderStatus, actingUserId uuid.UUID, note string) error
	CancelOrder(ctx context.Context, orderId, actingUserId uuid.UUID) (*CancelResult, error)
	CloneOrder(ctx context.Context, orderId uuid.UUID) (*OrderSummary, error)
	Reorder(ctx context.Context, orderId, actingUserId uuid.UUID) (*OrderSummary, error)
	AddOrderItem(ctx context.Context, orderId uuid.UUID, item RequestedItem, actingUserId uuid.UUID) error
	RemoveOrderItem(ctx context.Context, orderId, itemId, actingUserId uuid.UUID) error
}

type orderService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	variantRepo repo.VariantRepo
	userRepo    repo.UserRepo
	addressRepo repo.AddressRepo
	historyRepo repo.HistoryRepo
	notifier    OrderNotifier
	logger      *zap.Logger
}

func NewOrderService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	variantRepo repo.VariantRepo,
	userRepo repo.UserRepo,
	addressRepo repo.AddressRepo,
	historyRepo repo.HistoryRepo,
	notifier OrderNotifier,
	logger *zap.Logger,
) OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
		userRepo:    userRepo,
		addressRepo: addressRepo,
		historyRepo: historyRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateOrder validates the request fail-fast, then persists the order
// aggregate (order, items, stock decrement, history) in one
// transaction. Notifications run after commit and never affect the
// result.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput, actingUserId uuid.UUID) (*OrderSummary, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindById(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, input.UserID)
	}

	variants, err := s.lookupVariants(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	workspaceId, err := singleWorkspace(variants)
	if err != nil {
		return nil, err
	}

	shippingId, err := s.resolveAddress(ctx, input.UserID, input.ShippingAddressID, input.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billingId, err := s.resolveAddress(ctx, input.UserID, input.BillingAddressID, input.BillingAddress)
	if err != nil {
		return nil, err
	}

	if err := checkStock(input.Items, variants); err != nil {
		return nil, err
	}

	lines, total, err := PriceItems(input.Items, variants)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.OrderPending
	}
	commitStock := input.PaymentMethod == domain.PaymentCash || status == domain.OrderProcessing

	now := time.Now()
	order := &domain.Order{
		ID:                uuid.New(),
		WorkspaceID:       workspaceId,
		UserID:            input.UserID,
		Status:            status,
		PaymentMethod:     input.PaymentMethod,
		TotalAmount:       total,
		Notes:             input.Notes,
		ShippingAddressID: shippingId,
		BillingAddressID:  billingId,
		StockCommitted:    commitStock,
		PlacedAt:          now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.withTx(ctx, "create order", func(tx *sql.Tx) error {
		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		for _, line := range lines {
			item := &domain.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				Price:     line.Price,
				CreatedAt: now,
			}
			if err := s.orderRepo.CreateItem(ctx, tx, item); err != nil {
				return err
			}
		}
		if commitStock {
			if err := s.variantRepo.DecrementMany(ctx, tx, adjustments(input.Items)); err != nil {
				return err
			}
		}
		return s.historyRepo.Append(ctx, tx, &domain.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    status,
			Note:      "order placed",
			ChangedBy: actingUserId,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, order, domain.NotifyOrderCreated)

	return &OrderSummary{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		ItemCount:   len(lines),
		Message:     "order created",
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderId uuid.UUID) (*OrderDetail, error) {
	order, err := s.orderRepo.FindById(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderId)
	}
	items, err := s.orderRepo.FindItems(ctx, orderId)
	if err != nil {
		return nil, err
	}
	history, err := s.historyRepo.ListByOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: *order, Items: items, History: history}, nil
}

func (s *orderService) ListOrders(ctx context.Context, workspaceId uuid.UUID) ([]domain.Order, error) {
	return s.orderRepo.ListByWorkspace(ctx, workspaceId)
}

// UpdateStatus applies one legal state-machine transition. Moving into
// PROCESSING on an order that has not committed stock yet (deferred
// payment flow) decrements stock inside the same transaction, after a
// fresh sufficiency check.
func (s *orderService) UpdateStatus(ctx context.Context, orderId uuid.UUID, newStatus domain.OrderStatus, actingUserId uuid.UUID, note string) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, newStatus)
	}

	order, err := s.orderRepo.FindById(ctx, orderId)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderId)
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, newStatus)
	}

	commitStock := newStatus == domain.OrderProcessing && !order.StockCommitted

	var items []domain.OrderItem
	if commitStock {
		items, err = s.orderRepo.FindItems(ctx, orderId)
		if err != nil {
			return err
		}
		if err := s.recheckStock(ctx, items); err != nil {
			return err
		}
	}

	err = s.withTx(ctx, "update status", func(tx *sql.Tx) error {
		if commitStock {
			if err := s.variantRepo.DecrementMany(ctx, tx, itemAdjustments(items)); err != nil {
				return err
			}
		}
		if err := s.orderRepo.UpdateStatus(ctx, tx, orderId, order.Status, newStatus, order.StockCommitted || commitStock); err != nil {
			return err
		}
		return s.historyRepo.Append(ctx, tx, &domain.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   orderId,
			Status:    newStatus,
			Note:      note,
			ChangedBy: actingUserId,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return err
	}

	order.Status = newStatus
	s.dispatch(ctx, order, domain.NotifyOrderStatus)
	return nil
}

// CancelOrder moves the order to CANCELLED and reverses the original
// stock decrement in the same transaction, so a cancelled order never
// leaves phantom reservations behind.
func (s *orderService) CancelOrder(ctx context.Context, orderId, actingUserId uuid.UUID) (*CancelResult, error) {
	order, err := s.orderRepo.FindById(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderId)
	}
	if !order.Status.CanTransitionTo(domain.OrderCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, domain.OrderCancelled)
	}

	items, err := s.orderRepo.FindItems(ctx, orderId)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, "cancel order", func(tx *sql.Tx) error {
		// The guarded update runs first: a racing cancel loses here and
		// rolls back before any stock is restored.
		if err := s.orderRepo.UpdateStatus(ctx, tx, orderId, order.Status, domain.OrderCancelled, false); err != nil {
			return err
		}
		if order.StockCommitted {
			if err := s.variantRepo.IncrementMany(ctx, tx, itemAdjustments(items)); err != nil {
				return err
			}
		}
		return s.historyRepo.Append(ctx, tx, &domain.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   orderId,
			Status:    domain.OrderCancelled,
			Note:      "order cancelled",
			ChangedBy: actingUserId,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderCancelled
	s.dispatch(ctx, order, domain.NotifyOrderCancelled)

	return &CancelResult{Message: "order cancelled", Status: domain.OrderCancelled}, nil
}

// CloneOrder re-runs the aggregate commit path with the original
// order's items. Stock sufficiency is re-validated against current
// stock, not the state at the time of the original order.
func (s *orderService) CloneOrder(ctx context.Context, orderId uuid.UUID) (*OrderSummary, error) {
	input, owner, err := s.rebuildInput(ctx, orderId)
	if err != nil {
		return nil, err
	}
	return s.CreateOrder(ctx, *input, owner)
}

// Reorder is CloneOrder attributed to the acting user, always starting
// from PENDING.
func (s *orderService) Reorder(ctx context.Context, orderId, actingUserId uuid.UUID) (*OrderSummary, error) {
	input, _, err := s.rebuildInput(ctx, orderId)
	if err != nil {
		return nil, err
	}
	input.UserID = actingUserId
	input.Status = domain.OrderPending
	return s.CreateOrder(ctx, *input, actingUserId)
}

// AddOrderItem appends one line at the variant's current price,
// decrements stock if the order has committed stock, and shifts the
// total by exactly quantity x price.
func (s *orderService) AddOrderItem(ctx context.Context, orderId uuid.UUID, item RequestedItem, actingUserId uuid.UUID) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	order, err := s.orderRepo.FindById(ctx, orderId)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderId)
	}
	if order.Status.IsTerminal() {
		return fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, order.Status)
	}

	variant, err := s.variantRepo.FindById(ctx, item.VariantID)
	if err != nil {
		return err
	}
	if variant == nil {
		return fmt.Errorf("%w: %s", domain.ErrVariantNotFound, item.VariantID)
	}
	if variant.WorkspaceID != order.WorkspaceID {
		return domain.ErrCrossWorkspaceOrder
	}
	if order.StockCommitted && variant.Stock < item.Quantity {
		return &domain.InsufficientStockError{Violations: []domain.StockViolation{{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Requested: item.Quantity,
			Available: variant.Stock,
		}}}
	}

	delta := variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)

	return s.withTx(ctx, "add order item", func(tx *sql.Tx) error {
		if err := s.orderRepo.CreateItem(ctx, tx, &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderId,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     variant.Price,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		if order.StockCommitted {
			if err := s.variantRepo.AdjustStock(ctx, tx, item.VariantID, -item.Quantity); err != nil {
				return err
			}
		}
		return s.orderRepo.AdjustTotal(ctx, tx, orderId, delta)
	})
}

// RemoveOrderItem deletes a line, restores its stock if the order has
// committed stock, and shifts the total down by the line's snapshot
// price times quantity.
func (s *orderService) RemoveOrderItem(ctx context.Context, orderId, itemId, actingUserId uuid.UUID) error {
	order, err := s.orderRepo.FindById(ctx, orderId)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderId)
	}
	if order.Status.IsTerminal() {
		return fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, order.Status)
	}

	item, err := s.orderRepo.FindItemById(ctx, itemId)
	if err != nil {
		return err
	}
	if item == nil || item.OrderID != orderId {
		return fmt.Errorf("%w: %s", domain.ErrOrderItemNotFound, itemId)
	}

	delta := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2).Neg()

	return s.withTx(ctx, "remove order item", func(tx *sql.Tx) error {
		if err := s.orderRepo.DeleteItem(ctx, tx, itemId); err != nil {
			return err
		}
		if order.StockCommitted {
			if err := s.variantRepo.AdjustStock(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		return s.orderRepo.AdjustTotal(ctx, tx, orderId, delta)
	})
}

// --- helpers ---

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: order needs at least one item", domain.ErrValidation)
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for variant %s", domain.ErrValidation, item.VariantID)
		}
	}
	if !input.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, input.PaymentMethod)
	}
	if input.Status != "" && input.Status != domain.OrderPending && input.Status != domain.OrderProcessing {
		return fmt.Errorf("%w: orders cannot start as %s", domain.ErrValidation, input.Status)
	}
	return nil
}

func (s *orderService) lookupVariants(ctx context.Context, items []RequestedItem) ([]domain.ProductVariant, error) {
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
	for _, v := range variants {
		if !v.IsAvailable {
			return nil, fmt.Errorf("%w: variant %s is not available", domain.ErrValidation, v.SKU)
		}
	}
	return variants, nil
}

func singleWorkspace(variants []domain.ProductVariant) (uuid.UUID, error) {
	workspaceId := variants[0].WorkspaceID
	for _, v := range variants[1:] {
		if v.WorkspaceID != workspaceId {
			return uuid.Nil, domain.ErrCrossWorkspaceOrder
		}
	}
	return workspaceId, nil
}

// resolveAddress turns exactly one of {id, body} into a usable address
// id, creating the address when a body is supplied.
func (s *orderService) resolveAddress(ctx context.Context, userId uuid.UUID, id *uuid.UUID, body *AddressInput) (uuid.UUID, error) {
	switch {
	case id != nil && body != nil:
		return uuid.Nil, domain.ErrInvalidAddress
	case id != nil:
		address, err := s.addressRepo.FindById(ctx, *id)
		if err != nil {
			return uuid.Nil, err
		}
		if address == nil {
			return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrAddressNotFound, *id)
		}
		return address.ID, nil
	case body != nil:
		address := &domain.Address{
			ID:         uuid.New(),
			UserID:     userId,
			Line1:      body.Line1,
			Line2:      body.Line2,
			City:       body.City,
			Country:    body.Country,
			PostalCode: body.PostalCode,
			CreatedAt:  time.Now(),
		}
		if err := s.addressRepo.Create(ctx, address); err != nil {
			return uuid.Nil, err
		}
		return address.ID, nil
	default:
		return uuid.Nil, domain.ErrInvalidAddress
	}
}

// checkStock collects every violating line before failing, so the
// client can fix the whole cart at once.
func checkStock(items []RequestedItem, variants []domain.ProductVariant) error {
	byId := make(map[uuid.UUID]domain.ProductVariant, len(variants))
	for _, v := range variants {
		byId[v.ID] = v
	}
	var violations []domain.StockViolation
	for _, item := range items {
		v := byId[item.VariantID]
		if item.Quantity > v.Stock {
			violations = append(violations, domain.StockViolation{
				VariantID: v.ID,
				SKU:       v.SKU,
				Requested: item.Quantity,
				Available: v.Stock,
			})
		}
	}
	if len(violations) > 0 {
		return &domain.InsufficientStockError{Violations: violations}
	}
	return nil
}

func (s *orderService) recheckStock(ctx context.Context, items []domain.OrderItem) error {
	requested := make([]RequestedItem, 0, len(items))
	for _, item := range items {
		requested = append(requested, RequestedItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	variants, err := s.lookupVariants(ctx, requested)
	if err != nil {
		return err
	}
	return checkStock(requested, variants)
}

func (s *orderService) rebuildInput(ctx context.Context, orderId uuid.UUID) (*CreateOrderInput, uuid.UUID, error) {
	order, err := s.orderRepo.FindById(ctx, orderId)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if order == nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderId)
	}
	items, err := s.orderRepo.FindItems(ctx, orderId)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if len(items) == 0 {
		return nil, uuid.Nil, fmt.Errorf("%w: order %s has no items", domain.ErrValidation, orderId)
	}

	requested := make([]RequestedItem, 0, len(items))
	for _, item := range items {
		requested = append(requested, RequestedItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	shippingId := order.ShippingAddressID
	billingId := order.BillingAddressID
	return &CreateOrderInput{
		UserID:            order.UserID,
		Items:             requested,
		PaymentMethod:     order.PaymentMethod,
		ShippingAddressID: &shippingId,
		BillingAddressID:  &billingId,
		Notes:             order.Notes,
	}, order.UserID, nil
}

func adjustments(items []RequestedItem) []domain.StockAdjustment {
	out := make([]domain.StockAdjustment, 0, len(items))
	for _, item := range items {
		out = append(out, domain.StockAdjustment{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return out
}

func itemAdjustments(items []domain.OrderItem) []domain.StockAdjustment {
	out := make([]domain.StockAdjustment, 0, len(items))
	for _, item := range items {
		out = append(out, domain.StockAdjustment{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return out
}

// withTx runs fn inside one transaction. Domain errors surface with
// their own type after rollback; anything else is wrapped as a
// transaction failure.
func (s *orderService) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.TransactionFailedError{Op: op, Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if isDomainError(err) {
			return err
		}
		return &domain.TransactionFailedError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &domain.TransactionFailedError{Op: op, Err: err}
	}
	return nil
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrVariantNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidTransition)
}

// dispatch hands the event to the notifier on a detached context so a
// slow or failing notification can never block or fail the caller.
func (s *orderService) dispatch(ctx context.Context, order *domain.Order, kind domain.NotificationKind) {
	if s.notifier == nil {
		return
	}
	orderCopy := *order
	go s.notifier.OrderEvent(context.WithoutCancel(ctx), &orderCopy, kind)
}
