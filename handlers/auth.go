package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/internal/accounts"
	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/history"
	"github.com/gogotex/gogotex/backend/auth-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/middleware"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Login    string `json:"login" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// SigninRequest is the body of POST /auth/signin
type SigninRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignoutRequest optionally names the refresh token to revoke with the access token.
type SignoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type historyQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	jwt       config.JWTConfig
	accounts  *accounts.Service
	gate      *middleware.Gate
	rateLimit gin.HandlerFunc
	public    gin.HandlerFunc
}

// NewAuthHandler wires the session endpoints. rateLimit runs after the gate
// on authenticated routes; public throttles the unauthenticated ones.
func NewAuthHandler(jwt config.JWTConfig, acc *accounts.Service, gate *middleware.Gate, rateLimit, public gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{jwt: jwt, accounts: acc, gate: gate, rateLimit: rateLimit, public: public}
}

// Register routes under /auth and /content
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.public, h.Signup)
	a.POST("/signin", h.public, h.Signin)
	a.POST("/refresh", h.gate.RequireRefresh(), h.rateLimit, h.Refresh)
	a.POST("/signout", h.gate.RequireAccess(nil), h.rateLimit, h.Signout)
	a.POST("/signout_all", h.gate.RequireAccess(nil), h.rateLimit, h.SignoutAll)
	a.GET("/history", h.gate.RequireAccess(nil), h.rateLimit, h.History)
	a.GET("/me", h.gate.RequireAccess(nil), h.rateLimit, h.Me)

	rg.GET("/content/premium", h.gate.RequireAccess(middleware.Premium), h.rateLimit, h.PremiumContent)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidInput(err))
		return
	}
	u, err := h.accounts.Signup(c.Request.Context(), req.Login, req.Email, req.Password, c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, u)
}

func (h *AuthHandler) Signin(c *gin.Context) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidInput(err))
		return
	}
	pair, err := h.accounts.Signin(c.Request.Context(), req.Email, req.Password, c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.jwt.InCookies() {
		setTokenCookies(c, h.jwt, pair)
	}
	response.OK(c, http.StatusOK, pair)
}

// Refresh exchanges the refresh token for a new pair; the old refresh token
// stops working.
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	pair, err := h.accounts.Refresh(c.Request.Context(), claims, c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.jwt.InCookies() {
		setTokenCookies(c, h.jwt, pair)
	}
	response.OK(c, http.StatusOK, pair)
}

func (h *AuthHandler) Signout(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	var req SignoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidInput(err))
		return
	}
	refresh := req.RefreshToken
	if refresh == "" {
		refresh, _ = c.Cookie(middleware.RefreshCookie)
	}
	if err := h.accounts.Signout(c.Request.Context(), claims, refresh); err != nil {
		response.Error(c, err)
		return
	}
	clearTokenCookies(c, h.jwt)
	response.OK(c, http.StatusOK, nil)
}

func (h *AuthHandler) SignoutAll(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	if err := h.accounts.SignoutAll(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}
	clearTokenCookies(c, h.jwt)
	response.OK(c, http.StatusOK, nil)
}

func (h *AuthHandler) History(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperrors.Wrap(apperrors.KindHistory, "History error. Invalid paging parameters.", err))
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = history.DefaultPerPage
	}
	page, err := h.accounts.History(c.Request.Context(), claims.Identity.ID, q.Page, q.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, page)
}

// Me returns the identity carried by the access token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	response.OK(c, http.StatusOK, claims.Identity)
}

func (h *AuthHandler) PremiumContent(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	response.OK(c, http.StatusOK, gin.H{"user_id": claims.Identity.ID, "content": "premium"})
}

func invalidInput(err error) error {
	return apperrors.Wrap(apperrors.KindValidation, "Invalid input.", err)
}

func setTokenCookies(c *gin.Context, jwt config.JWTConfig, pair *tokens.Pair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, pair.AccessToken, int(jwt.AccessTokenTTL.Seconds()), "/", "", jwt.CookieSecure, true)
	c.SetCookie(middleware.RefreshCookie, pair.RefreshToken, int(jwt.RefreshTokenTTL.Seconds()), "/", "", jwt.CookieSecure, true)
}

func clearTokenCookies(c *gin.Context, jwt config.JWTConfig) {
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", jwt.CookieSecure, true)
	c.SetCookie(middleware.RefreshCookie, "", -1, "/", "", jwt.CookieSecure, true)
}
