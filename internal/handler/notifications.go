package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/repo"
)

type NotificationHandler struct {
	notifications repo.NotificationRepo
}

func NewNotificationHandler(notifications repo.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	workspaceId, err := uuid.Parse(c.Param("wid"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid workspace id", domain.ErrValidation))
		return
	}
	notifications, err := h.notifications.ListByWorkspace(c.Request.Context(), workspaceId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": notifications})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid notification id", domain.ErrValidation))
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "marked read"})
}
