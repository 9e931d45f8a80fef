package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

// RequestIDHeader must be present on every request.
const RequestIDHeader = "X-Request-Id"

// RequestID rejects requests without an X-Request-Id header before any
// handler runs and echoes the id back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			response.AbortFail(c, http.StatusBadRequest, "Missing request id.")
			return
		}
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", c.GetHeader(RequestIDHeader)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.L().Error("request", attrs...)
		case status >= http.StatusBadRequest:
			logger.L().Warn("request", attrs...)
		default:
			logger.L().Info("request", attrs...)
		}
	}
}

// Recovery turns a panic into the generic 400 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		response.AbortError(c, fmt.Errorf("panic: %v", recovered))
	})
}
