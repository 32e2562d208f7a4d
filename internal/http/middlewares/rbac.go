package middlewares

import (
	"strings"

	"github.com/geocoder89/bankdesk/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			unauthorized(c, "Missing identity context")
			return
		}
		if role != required {
			handlers.RespondForbidden(c, roleLabel(required)+" role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func roleLabel(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
