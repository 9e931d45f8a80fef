package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogotex/gogotex/backend/auth-service/pkg/middleware"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Router lists everything NewRouter mounts. Nil handlers are skipped.
type Router struct {
	Auth    *AuthHandler
	OAuth   *OAuthHandler
	Roles   *RolesHandler
	Ready   map[string]Pinger
	Metrics http.Handler
}

var startTime = time.Now()

// NewRouter builds the engine. Order on /api/v1: recovery, request log,
// request id, then per route gate -> policy -> rate limit -> handler.
func NewRouter(rt Router) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger(), cors())
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Not found.")
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", ready(rt.Ready))
	if rt.Metrics == nil {
		rt.Metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(rt.Metrics))

	api := r.Group("/api/v1", middleware.RequestID())
	if rt.Auth != nil {
		rt.Auth.Register(api)
	}
	if rt.OAuth != nil {
		rt.OAuth.Register(api)
	}
	if rt.Roles != nil {
		rt.Roles.Register(api)
	}
	return r
}

// ready returns 200 only when every dependency answers a ping
func ready(deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := map[string]bool{}
		ok := true
		for name, ping := range deps {
			status[name] = ping(ctx) == nil
			ok = ok && status[name]
		}
		code, state := http.StatusOK, "ready"
		if !ok {
			code, state = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(code, gin.H{"status": state, "deps": status, "uptime": time.Since(startTime).String()})
	}
}

// cors sets permissive headers for the browser flows and answers preflight requests.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-Id")
		h.Set("Access-Control-Expose-Headers", "Content-Length, X-Request-Id, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
