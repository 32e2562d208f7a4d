package middlewares

import (
	"log/slog"
	"time"

	"github.com/geocoder89/bankdesk/internal/actorctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	processIDHeader = "X-Process-Id"

	maxCorrelationIDLen = 128
)

// RequestID echoes (or mints) X-Request-Id and echoes X-Process-Id, putting
// both on the gin context and on the request context.Context.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := sanitizeCorrelationID(ctx.GetHeader(requestIDHeader))

		if id == "" {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set(CtxRequestID, id)

		rctx := actorctx.WithRequestID(ctx.Request.Context(), id)

		if processID := sanitizeCorrelationID(ctx.GetHeader(processIDHeader)); processID != "" {
			ctx.Writer.Header().Set(processIDHeader, processID)
			ctx.Set(CtxProcessID, processID)
			rctx = actorctx.WithProcessID(rctx, processID)
		}

		ctx.Request = ctx.Request.WithContext(rctx)

		ctx.Next()
	}
}

// client supplied ids end up in logs, so bound their length and charset
func sanitizeCorrelationID(v string) string {
	if v == "" || len(v) > maxCorrelationIDLen {
		return ""
	}
	for _, r := range v {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return v
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx *gin.Context) {
		start := time.Now()

		method := ctx.Request.Method

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path // fallback (e.g. 404)
		}

		lat := time.Since(start)
		status := ctx.Writer.Status()

		logAttrs := []any{
			"method", method,
			"route", route,
			"status", status,
			"latency_ms", lat.Milliseconds(),
			"client_ip", ctx.ClientIP(),
		}

		if len(ctx.Errors) > 0 {
			logAttrs = append(logAttrs, "errors", ctx.Errors.String())
		}

		// request_id/process_id/user_id come from the context handler
		switch {
		case status >= 500:
			log.ErrorContext(ctx.Request.Context(), "http_request", logAttrs...)
		case status >= 400:
			log.WarnContext(ctx.Request.Context(), "http_request", logAttrs...)
		default:
			log.InfoContext(ctx.Request.Context(), "http_request", logAttrs...)
		}
	}
}
