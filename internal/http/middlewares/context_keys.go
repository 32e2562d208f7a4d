package middlewares

import (
	"github.com/geocoder89/bankdesk/internal/actorctx"
	"github.com/gin-gonic/gin"
)

// gin context keys; the same values are mirrored onto the request
// context.Context through actorctx for code that never sees *gin.Context.
const (
	CtxRequestID = "request_id"
	CtxProcessID = "process_id"
	ctxUserIDKey = "auth.userID"
	ctxRoleKey   = "auth.role"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := actorctx.RequestIDFrom(c.Request.Context())

	body := gin.H{
		"code":    code,
		"message": message,
	}
	if reqID != "" {
		body["requestId"] = reqID
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
