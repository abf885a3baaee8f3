package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/export"
	"workspace-backoffice/internal/service"
)

type orderItemRequest struct {
	VariantID string `json:"variant_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type placeOrderRequest struct {
	UserID            string                `json:"user_id" binding:"required,uuid"`
	Items             []orderItemRequest    `json:"items" binding:"required,min=1,dive"`
	PaymentMethod     string                `json:"payment_method" binding:"required,oneof=CASH ONLINE"`
	ShippingAddressID *string               `json:"shipping_address_id" binding:"omitempty,uuid"`
	ShippingAddress   *service.AddressInput `json:"shipping_address"`
	BillingAddressID  *string               `json:"billing_address_id" binding:"omitempty,uuid"`
	BillingAddress    *service.AddressInput `json:"billing_address"`
	Notes             string                `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PROCESSING DELIVERED CANCELLED"`
	Note   string `json:"note"`
}

type webhookRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

type OrderHandler struct {
	orders   service.OrderService
	checkout service.CheckoutService
}

func NewOrderHandler(orders service.OrderService, checkout service.CheckoutService) *OrderHandler {
	return &OrderHandler{orders: orders, checkout: checkout}
}

// PlaceOrder dispatches by payment method: CASH orders commit
// immediately, ONLINE requests come back with a redirect to the
// payment session.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	input, err := toCreateInput(req)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.checkout.PlaceOrder(c.Request.Context(), *input, actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Order == nil {
		// Deferred-commit path: nothing persisted but the session.
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"success": true, "data": result})
}

// Webhook receives the gateway's payment confirmation and materializes
// the pending order intent.
func (h *OrderHandler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if req.Status != "paid" {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ignored"})
		return
	}

	summary, err := h.checkout.ConfirmPayment(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid order id", domain.ErrValidation))
		return
	}
	detail, err := h.orders.GetOrder(c.Request.Context(), orderId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

// ListOrders returns the workspace's orders, as JSON or as a CSV
// export when ?format=csv.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	workspaceId, err := uuid.Parse(c.Param("wid"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid workspace id", domain.ErrValidation))
		return
	}
	orders, err := h.orders.ListOrders(c.Request.Context(), workspaceId)
	if err != nil {
		writeError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="orders.csv"`)
		if err := export.OrdersCSV(c.Writer, orders); err != nil {
			writeError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid order id", domain.ErrValidation))
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), orderId, domain.OrderStatus(req.Status), actingUser(c), req.Note); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "status updated"})
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid order id", domain.ErrValidation))
		return
	}
	result, err := h.orders.CancelOrder(c.Request.Context(), orderId, actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (h *OrderHandler) Reorder(c *gin.Context) {
	orderId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid order id", domain.ErrValidation))
		return
	}
	summary, err := h.orders.Reorder(c.Request.Context(), orderId, actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": summary})
}

func (h *OrderHandler) AddItem(c *gin.Context) {
	orderId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid order id", domain.ErrValidation))
		return
	}
	var req orderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	variantId, err := uuid.Parse(req.VariantID)
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid variant id %q", domain.ErrValidation, req.VariantID))
		return
	}

	if err := h.orders.AddOrderItem(c.Request.Context(), orderId,
		service.RequestedItem{VariantID: variantId, Quantity: req.Quantity}, actingUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "item added"})
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	orderId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid order id", domain.ErrValidation))
		return
	}
	itemId, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid item id", domain.ErrValidation))
		return
	}
	if err := h.orders.RemoveOrderItem(c.Request.Context(), orderId, itemId, actingUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "item removed"})
}

func toCreateInput(req placeOrderRequest) (*service.CreateOrderInput, error) {
	userId, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}

	items := make([]service.RequestedItem, 0, len(req.Items))
	for _, item := range req.Items {
		variantId, err := uuid.Parse(item.VariantID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid variant id %q", domain.ErrValidation, item.VariantID)
		}
		items = append(items, service.RequestedItem{VariantID: variantId, Quantity: item.Quantity})
	}

	input := &service.CreateOrderInput{
		UserID:          userId,
		Items:           items,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
	}
	if req.ShippingAddressID != nil {
		id, err := uuid.Parse(*req.ShippingAddressID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid shipping address id", domain.ErrValidation)
		}
		input.ShippingAddressID = &id
	}
	if req.BillingAddressID != nil {
		id, err := uuid.Parse(*req.BillingAddressID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid billing address id", domain.ErrValidation)
		}
		input.BillingAddressID = &id
	}
	return input, nil
}
