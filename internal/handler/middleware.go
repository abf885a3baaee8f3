package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

// PermissionChecker is the external role/permission gate. It returns
// ErrPermissionDenied (or a wrapper of it) to deny.
type PermissionChecker interface {
	Check(ctx context.Context, workspaceId, userId uuid.UUID, action string) error
}

// AllowAll passes every check; the real gate is wired in deployments
// that run the permission service.
type AllowAll struct{}

func (AllowAll) Check(ctx context.Context, workspaceId, userId uuid.UUID, action string) error {
	return nil
}

const userIdKey = "acting_user_id"

// requireUser extracts the authenticated user id placed in X-User-ID by
// the auth layer in front of this service.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, err := uuid.Parse(c.GetHeader("X-User-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "unauthenticated",
				"message": "X-User-ID header is required",
				"status":  http.StatusUnauthorized,
			})
			return
		}
		c.Set(userIdKey, userId)
		c.Next()
	}
}

func actingUser(c *gin.Context) uuid.UUID {
	return c.MustGet(userIdKey).(uuid.UUID)
}

// requirePermission gates a workspace-scoped route on the permission
// checker before the handler runs.
func requirePermission(perms PermissionChecker, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, err := uuid.Parse(c.Param("wid"))
		if err != nil {
			writeError(c, fmt.Errorf("%w: invalid workspace id", domain.ErrValidation))
			return
		}
		if err := perms.Check(c.Request.Context(), workspaceId, actingUser(c), action); err != nil {
			writeError(c, err)
			return
		}
		c.Next()
	}
}
