package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/metrics"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

// Cookie names used by browser flows.
const (
	AccessCookie  = "access_token_cookie"
	RefreshCookie = "refresh_token_cookie"
)

const claimsKey = "claims"

// Verifier is the part of the token issuer the gate depends on
type Verifier interface {
	Verify(raw string, want tokens.Kind) (*tokens.Claims, error)
}

// RevocationChecker is the part of the token store the gate depends on
type RevocationChecker interface {
	Exists(ctx context.Context, userID, tokenID string) (bool, error)
}

// Policy decides whether a verified identity may proceed. A nil Policy
// accepts every identity.
type Policy func(tokens.Identity) bool

var (
	Active  Policy = func(id tokens.Identity) bool { return id.IsActive }
	Admin   Policy = func(id tokens.Identity) bool { return id.IsActive && id.IsAdmin }
	Premium Policy = func(id tokens.Identity) bool { return id.IsActive && (id.IsAdmin || id.IsPremium) }
)

// Gate authenticates and authorizes requests:
// extract -> verify signature/expiry -> check revocation -> check policy.
type Gate struct {
	verifier  Verifier
	store     RevocationChecker
	inHeaders bool
	inCookies bool
}

// NewGate reads tokens from the locations enabled in cfg. store may be nil
// (no revocation check).
func NewGate(v Verifier, store RevocationChecker, cfg config.JWTConfig) *Gate {
	return &Gate{verifier: v, store: store, inHeaders: cfg.InHeaders(), inCookies: cfg.InCookies()}
}

// Authorize runs every step after extraction. Errors are auth kinds
// (Unauthorized) or KindForbidden.
func (g *Gate) Authorize(ctx context.Context, raw string, kind tokens.Kind, policy Policy) (*tokens.Claims, error) {
	if raw == "" {
		return nil, apperrors.New(apperrors.KindMalformed, "Missing authorization token.")
	}
	claims, err := g.verifier.Verify(raw, kind)
	if err != nil {
		return nil, err
	}
	if g.store != nil {
		ok, err := g.store.Exists(ctx, claims.Identity.ID, claims.TokenID)
		switch {
		case err != nil:
			// cannot revoke without the store; signature and expiry still hold
			logger.Warnf("token store unavailable, revocation not checked for %s: %v", claims.TokenID, err)
		case !ok:
			return nil, apperrors.New(apperrors.KindRevoked, "Token has been revoked.")
		}
	}
	if policy != nil && !policy(claims.Identity) {
		return nil, apperrors.Forbidden("Insufficient permissions.")
	}
	return claims, nil
}

// Extract returns the raw token of the given kind from the enabled locations.
// The Authorization header wins over the cookie.
func (g *Gate) Extract(c *gin.Context, kind tokens.Kind) string {
	if g.inHeaders {
		if auth := c.GetHeader("Authorization"); auth != "" {
			var token string
			if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n == 1 {
				return token
			}
			return ""
		}
	}
	if g.inCookies {
		name := AccessCookie
		if kind == tokens.Refresh {
			name = RefreshCookie
		}
		if v, err := c.Cookie(name); err == nil {
			return v
		}
	}
	return ""
}

// RequireAccess admits requests carrying a valid access token whose
// identity satisfies policy.
func (g *Gate) RequireAccess(policy Policy) gin.HandlerFunc {
	return g.require(tokens.Access, policy)
}

// RequireRefresh admits requests carrying a valid refresh token.
func (g *Gate) RequireRefresh() gin.HandlerFunc {
	return g.require(tokens.Refresh, nil)
}

func (g *Gate) require(kind tokens.Kind, policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := g.Authorize(c.Request.Context(), g.Extract(c, kind), kind, policy)
		if err != nil {
			outcome := "unauthorized"
			if apperrors.Is(err, apperrors.KindForbidden) {
				outcome = "forbidden"
			}
			metrics.GateDecisions.WithLabelValues(outcome).Inc()
			response.AbortError(c, err)
			return
		}
		metrics.GateDecisions.WithLabelValues("authorized").Inc()
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by the gate.
func ClaimsFrom(c *gin.Context) (*tokens.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*tokens.Claims)
	return claims, ok
}
