package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gogotex/gogotex/backend/auth-service/pkg/metrics"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

// IPRateLimit throttles unauthenticated endpoints (signin, signup, OAuth
// redirects) with an in-memory token bucket per client IP.
// rps = allowed events per second, burst = maximum tokens in bucket.
func IPRateLimit(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		v, _ := limiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(rps), burst))
		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			response.AbortFail(c, http.StatusTooManyRequests, "Too many requests.")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
