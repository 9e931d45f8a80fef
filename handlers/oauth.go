package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/internal/accounts"
	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/oauth"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/response"
)

const stateCookie = "oauth_state"

// OAuthHandler runs the redirect and callback of each configured provider
type OAuthHandler struct {
	jwt       config.JWTConfig
	providers *oauth.Registry
	accounts  *accounts.Service
	public    gin.HandlerFunc
}

func NewOAuthHandler(jwt config.JWTConfig, providers *oauth.Registry, acc *accounts.Service, public gin.HandlerFunc) *OAuthHandler {
	return &OAuthHandler{jwt: jwt, providers: providers, accounts: acc, public: public}
}

// Register adds /{provider}/signin and /{provider}/callback for every
// configured provider. Other providers fall through to 404.
func (h *OAuthHandler) Register(rg *gin.RouterGroup) {
	for _, name := range h.providers.Names() {
		p, _ := h.providers.Get(name)
		g := rg.Group("/" + name)
		g.GET("/signin", h.public, h.signin(p))
		g.GET("/callback", h.public, h.callback(p))
	}
}

func (h *OAuthHandler) signin(p oauth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := oauth.NewState()
		if err != nil {
			response.Error(c, err)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(stateCookie, state, 600, "/", "", h.jwt.CookieSecure, true)
		c.Redirect(http.StatusFound, p.AuthCodeURL(state))
	}
}

func (h *OAuthHandler) callback(p oauth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected, _ := c.Cookie(stateCookie)
		c.SetCookie(stateCookie, "", -1, "/", "", h.jwt.CookieSecure, true)
		state := c.Query("state")
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
			response.Error(c, apperrors.Signin("Invalid OAuth state."))
			return
		}
		if e := c.Query("error"); e != "" {
			response.Error(c, apperrors.Signin("Provider refused access: "+e+"."))
			return
		}
		code := c.Query("code")
		if code == "" {
			response.Error(c, apperrors.Validation("Missing authorization code."))
			return
		}

		identity, err := p.Identity(c.Request.Context(), code)
		if err != nil {
			logger.Warnf("%s handshake failed: %v", p.Name(), err)
			response.Error(c, apperrors.Wrap(apperrors.KindSignin, "Signin error. Could not get the account from "+p.Name()+".", err))
			return
		}
		pair, err := h.accounts.SigninSocial(c.Request.Context(), identity, c.Request.UserAgent())
		if err != nil {
			response.Error(c, err)
			return
		}
		setTokenCookies(c, h.jwt, pair)
		response.OK(c, http.StatusOK, pair)
	}
}
