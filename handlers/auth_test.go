package handlers

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/auth-service/internal/history"
	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"github.com/gogotex/gogotex/backend/auth-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/middleware"
)

func (e *testEnv) signup(t *testing.T, login, email, password string) models.User {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/signup", SignupRequest{Login: login, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u models.User
	decode(t, w, &u)
	return u
}

func (e *testEnv) signin(t *testing.T, email, password string) tokens.Pair {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/signin", SigninRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair tokens.Pair
	decode(t, w, &pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func TestSignup_CreatesAccount(t *testing.T) {
	e := newTestEnv(t, 100)

	u := e.signup(t, "alice", "Alice@Example.COM", "correct-horse")
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, u.ID)

	w := e.do(t, http.MethodPost, "/api/v1/auth/signup", SignupRequest{Login: "alice2", Email: "alice@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Signup error. User with this email already exists.", errorOf(t, w))
}

func TestSignup_HidesPasswordHash(t *testing.T) {
	e := newTestEnv(t, 100)
	w := e.do(t, http.MethodPost, "/api/v1/auth/signup", SignupRequest{Login: "bob", Email: "bob@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "correct-horse")
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestSignup_InvalidInput(t *testing.T) {
	e := newTestEnv(t, 100)
	cases := map[string]SignupRequest{
		"short password": {Login: "a", Email: "a@example.com", Password: "short"},
		"bad email":      {Login: "a", Email: "not-an-email", Password: "correct-horse"},
		"no login":       {Email: "a@example.com", Password: "correct-horse"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/auth/signup", req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid input.", errorOf(t, w))
		})
	}
}

func TestSignin_WrongCredentialsSameMessage(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodPost, "/api/v1/auth/signin", SigninRequest{Email: "alice@example.com", Password: "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	wrongPassword := errorOf(t, w)

	w = e.do(t, http.MethodPost, "/api/v1/auth/signin", SigninRequest{Email: "nobody@example.com", Password: "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, wrongPassword, errorOf(t, w))
}

func TestSignin_SetsHTTPOnlyCookies(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodPost, "/api/v1/auth/signin", SigninRequest{Email: "alice@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, middleware.AccessCookie)
	require.Contains(t, cookies, middleware.RefreshCookie)
	assert.True(t, cookies[middleware.AccessCookie].HttpOnly)
	assert.Equal(t, 3600, cookies[middleware.AccessCookie].MaxAge)

	// the cookie alone authenticates
	w = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withCookie(middleware.AccessCookie, cookies[middleware.AccessCookie].Value))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMe_ReturnsIdentity(t *testing.T) {
	e := newTestEnv(t, 100)
	u := e.signup(t, "alice", "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	var id tokens.Identity
	decode(t, w, &id)
	assert.Equal(t, u.ID, id.ID)
	assert.Equal(t, "handlers-test", id.DeviceInfo)
	assert.Equal(t, []string{"user"}, id.Roles)
	assert.False(t, id.IsPremium)

	w = e.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_OneTimeUse(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")

	// an access token is not a refresh token
	w := e.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, withBearer(pair.RefreshToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var next tokens.Pair
	decode(t, w, &next)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)

	w = e.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, withBearer(pair.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(next.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignout_RevokesAccessAndRefresh(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")
	other := e.signin(t, "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodPost, "/api/v1/auth/signout", SignoutRequest{RefreshToken: pair.RefreshToken}, withBearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked.", errorOf(t, w))

	w = e.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, withBearer(pair.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the other session is untouched
	w = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(other.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignout_WithoutBody(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodPost, "/api/v1/auth/signout", nil, withBearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// refresh token was not named, so it still works
	w = e.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, withBearer(pair.RefreshToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignoutAll_RevokesEverySession(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")
	first := e.signin(t, "alice@example.com", "correct-horse")
	second := e.signin(t, "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodPost, "/api/v1/auth/signout_all", nil, withBearer(first.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)

	for _, tok := range []string{first.AccessToken, second.AccessToken} {
		w = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(tok))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, withBearer(second.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistory_Paging(t *testing.T) {
	e := newTestEnv(t, 100)
	e.signup(t, "alice", "alice@example.com", "correct-horse")
	e.signin(t, "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodGet, "/api/v1/auth/history?page=2&per_page=2", nil, withBearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page history.Page
	decode(t, w, &page)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 1)

	w = e.do(t, http.MethodGet, "/api/v1/auth/history", nil, withBearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, history.DefaultPerPage, page.PerPage)
	assert.Len(t, page.Items, 3)

	w = e.do(t, http.MethodGet, "/api/v1/auth/history?per_page="+strconv.Itoa(history.MaxPerPage+1), nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "History error. Invalid paging parameters.", errorOf(t, w))
}

func TestPremiumContent_RequiresSubscriberRole(t *testing.T) {
	e := newTestEnv(t, 100)
	alice := e.signup(t, "alice", "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")

	w := e.do(t, http.MethodGet, "/api/v1/content/premium", nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions.", errorOf(t, w))

	require.NoError(t, e.users.AssignRole(context.Background(), alice.ID, "subscriber"))

	// old token still carries the old roles
	w = e.do(t, http.MethodGet, "/api/v1/content/premium", nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	pair = e.signin(t, "alice@example.com", "correct-horse")
	w = e.do(t, http.MethodGet, "/api/v1/content/premium", nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_PerIdentity(t *testing.T) {
	e := newTestEnv(t, 2)
	e.signup(t, "alice", "alice@example.com", "correct-horse")
	pair := e.signin(t, "alice@example.com", "correct-horse")

	for i := 0; i < 2; i++ {
		w := e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(pair.AccessToken))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := e.do(t, http.MethodGet, "/api/v1/auth/me", nil, withBearer(pair.AccessToken))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests.", errorOf(t, w))
}
