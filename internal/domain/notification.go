package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotifyOrderCreated   NotificationKind = "ORDER_CREATED"
	NotifyOrderCancelled NotificationKind = "ORDER_CANCELLED"
	NotifyOrderStatus    NotificationKind = "ORDER_STATUS_CHANGED"
)

type Notification struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Kind        NotificationKind
	OrderID     uuid.UUID
	Message     string
	ReadAt      *time.Time
	CreatedAt   time.Time
}
