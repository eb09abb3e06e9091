package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Roles supplied by the upstream auth gateway. Identity is opaque here: the
// gateway authenticates and forwards who the caller is.
const (
	RoleScheduler = "scheduler"
	RoleTeacher   = "teacher"
	RoleAdmin     = "admin"
)

const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"

	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// Identity requires the gateway identity headers on every API call.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		role := c.GetHeader(headerUserRole)

		if userID == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// RequireRole gates a route to the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		if !allowed[c.GetString(ctxUserRole)] {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}
