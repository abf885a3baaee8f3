package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"workspace-backoffice/internal/domain"
)

// writeError maps the domain error taxonomy onto the canonical JSON
// envelope. Stock errors enumerate every violating line item so the
// client can correct the whole cart in one round trip.
func writeError(c *gin.Context, err error) {
	status, code := classify(err)

	payload := gin.H{
		"success": false,
		"error":   code,
		"message": err.Error(),
		"status":  status,
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		payload["items"] = stockErr.Violations
	}

	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs.
		payload["message"] = "internal error"
	}

	c.AbortWithStatusJSON(status, payload)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrCrossWorkspaceOrder):
		return http.StatusBadRequest, "cross_workspace_order"
	case errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_address"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrOrderItemNotFound),
		errors.Is(err, domain.ErrVariantNotFound),
		errors.Is(err, domain.ErrAddressNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
