package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleOwner    UserRole = "OWNER"
	RoleAdmin    UserRole = "ADMIN"
	RoleStaff    UserRole = "STAFF"
	RoleCustomer UserRole = "CUSTOMER"
)

// IsStaff reports whether the role receives workspace-facing order
// notifications.
func (r UserRole) IsStaff() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleStaff
}

type User struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Email       string
	Name        string
	Role        UserRole
	CreatedAt   time.Time
}
