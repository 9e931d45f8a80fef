package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/internal/ratelimit"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/metrics"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

// RateLimit enforces the per-minute quota of the authenticated subject. It
// must run after the gate; without claims the client IP is the subject.
// When the counter store fails the request is let through.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if claims, ok := ClaimsFrom(c); ok {
			subject = claims.Identity.ID
		}
		allowed, err := limiter.CheckAndIncrement(c.Request.Context(), subject)
		if err != nil {
			logger.Warnf("rate limiter unavailable, request of %s not counted: %v", subject, err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(secondsToNextMinute(time.Now())))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			response.AbortError(c, apperrors.New(apperrors.KindRateLimited, "Too many requests."))
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}

func secondsToNextMinute(now time.Time) int {
	return 60 - now.Second()
}
