package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gogotex/gogotex/backend/auth-service/internal/history"
	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"github.com/gogotex/gogotex/backend/auth-service/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-service/internal/users"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/metrics"
)

const methodPassword = "password"

// Config carries the role names the service needs.
type Config struct {
	DefaultRole string
	PremiumRole string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service binds identities to local accounts and runs the session flows on
// top of the token issuer and store.
type Service struct {
	users   *users.Service
	issuer  *tokens.Issuer
	store   sessions.Store
	history *history.Service
	cfg     Config
}

func NewService(u *users.Service, issuer *tokens.Issuer, store sessions.Store, h *history.Service, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: u, issuer: issuer, store: store, history: h, cfg: cfg}
}

// SigninSocial resolves the provider identity to a local account by email,
// creating the account on first signin, and issues a token pair.
func (s *Service) SigninSocial(ctx context.Context, identity models.SocialIdentity, deviceInfo string) (*tokens.Pair, error) {
	method := identity.Provider
	if !identity.EmailVerified {
		metrics.Signins.WithLabelValues(method, "unverified").Inc()
		return nil, apperrors.Signin("User has not verified the account.")
	}
	email := users.NormalizeEmail(identity.Email)
	if email == "" {
		metrics.Signins.WithLabelValues(method, "failure").Inc()
		return nil, apperrors.Signin("Provider did not return an email.")
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		identity.Email = email
		u, err = s.SignupSocial(ctx, identity)
		if err != nil {
			metrics.Signins.WithLabelValues(method, "failure").Inc()
			return nil, err
		}
		s.history.Record(ctx, u.ID, history.ActionSignup, deviceInfo)
	case err != nil:
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !u.IsActive {
		metrics.Signins.WithLabelValues(method, "inactive").Inc()
		return nil, apperrors.Signin("Account is disabled.")
	}

	pair, err := s.issue(ctx, u, deviceInfo)
	if err != nil {
		return nil, err
	}
	s.history.Record(ctx, u.ID, history.ActionSignin, deviceInfo)
	metrics.Signins.WithLabelValues(method, "success").Inc()
	return pair, nil
}

// SignupSocial creates the local account for a provider identity. The
// account gets an unusable random password; the login is the name followed by
// the provider subject. A duplicate email is only detected by the store's
// unique constraint.
func (s *Service) SignupSocial(ctx context.Context, identity models.SocialIdentity) (*models.User, error) {
	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Login:        SocialLogin(identity),
		Email:        identity.Email,
		PasswordHash: string(hash),
		IsActive:     true,
		IsVerified:   true,
		IsAdmin:      false,
	}
	created, err := s.users.CreateUser(ctx, u, s.cfg.DefaultRole)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, apperrors.Signup("User with this email already exists.")
		}
		return nil, fmt.Errorf("create social user: %w", err)
	}
	logger.Infof("account created for %s identity %s", identity.Provider, identity.Subject)
	return created, nil
}

// SocialLogin derives the login of a social account. Not guaranteed unique.
func SocialLogin(identity models.SocialIdentity) string {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = identity.Provider
	}
	return name + identity.Subject
}

// Signup registers a password account with the default role.
func (s *Service) Signup(ctx context.Context, login, email, password, deviceInfo string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperrors.Signup("Password is too long.")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Login:        strings.TrimSpace(login),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	created, err := s.users.CreateUser(ctx, u, s.cfg.DefaultRole)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, apperrors.Signup("User with this email already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.history.Record(ctx, created.ID, history.ActionSignup, deviceInfo)
	return created, nil
}

// Signin checks a password and issues a token pair. Unknown email and wrong
// password produce the same message.
func (s *Service) Signin(ctx context.Context, email, password, deviceInfo string) (*tokens.Pair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			metrics.Signins.WithLabelValues(methodPassword, "failure").Inc()
			return nil, apperrors.Signin("Wrong email or password.")
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		metrics.Signins.WithLabelValues(methodPassword, "failure").Inc()
		return nil, apperrors.Signin("Wrong email or password.")
	}
	if !u.IsActive {
		metrics.Signins.WithLabelValues(methodPassword, "inactive").Inc()
		return nil, apperrors.Signin("Account is disabled.")
	}
	pair, err := s.issue(ctx, u, deviceInfo)
	if err != nil {
		return nil, err
	}
	s.history.Record(ctx, u.ID, history.ActionSignin, deviceInfo)
	metrics.Signins.WithLabelValues(methodPassword, "success").Inc()
	return pair, nil
}

// Refresh spends a verified refresh token and issues a new pair from the
// current state of the account. A refresh token works once.
func (s *Service) Refresh(ctx context.Context, refresh *tokens.Claims, deviceInfo string) (*tokens.Pair, error) {
	userID := refresh.Identity.ID
	consumed, err := s.store.Consume(ctx, userID, refresh.TokenID)
	if err != nil {
		logger.Warnf("token store unavailable, refresh token %s of user %s not consumed: %v", refresh.TokenID, userID, err)
	} else if !consumed {
		return nil, apperrors.Refresh("Token has already been used.")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, apperrors.Refresh("User not found.")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !u.IsActive {
		return nil, apperrors.Refresh("Account is disabled.")
	}
	pair, err := s.issue(ctx, u, deviceInfo)
	if err != nil {
		return nil, err
	}
	s.history.Record(ctx, userID, history.ActionRefresh, deviceInfo)
	return pair, nil
}

// Signout revokes the access token and, when given, a refresh token of the
// same user.
func (s *Service) Signout(ctx context.Context, access *tokens.Claims, refreshRaw string) error {
	userID := access.Identity.ID
	if err := s.store.Revoke(ctx, userID, access.TokenID); err != nil {
		return apperrors.Signout("Could not revoke the token.").WithCause(err)
	}
	if refreshRaw != "" {
		refresh, err := s.issuer.Verify(refreshRaw, tokens.Refresh)
		switch {
		case err != nil:
			logger.Debugf("signout: refresh token ignored: %v", err)
		case refresh.Identity.ID != userID:
			return apperrors.Signout("Refresh token belongs to another user.")
		default:
			if err := s.store.Revoke(ctx, userID, refresh.TokenID); err != nil {
				return apperrors.Signout("Could not revoke the token.").WithCause(err)
			}
		}
	}
	s.history.Record(ctx, userID, history.ActionSignout, access.Identity.DeviceInfo)
	return nil
}

// SignoutAll revokes every token of the user.
func (s *Service) SignoutAll(ctx context.Context, access *tokens.Claims) error {
	userID := access.Identity.ID
	if err := s.store.RevokeAll(ctx, userID); err != nil {
		return apperrors.SignoutAll("Could not revoke tokens.").WithCause(err)
	}
	s.history.Record(ctx, userID, history.ActionSignoutAll, access.Identity.DeviceInfo)
	return nil
}

// History returns a page of the user's actions.
func (s *Service) History(ctx context.Context, userID string, page, perPage int) (*history.Page, error) {
	return s.history.List(ctx, userID, page, perPage)
}

func (s *Service) issue(ctx context.Context, u *models.User, deviceInfo string) (*tokens.Pair, error) {
	roles, err := s.users.RoleNames(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return s.issuer.Issue(ctx, tokens.NewIdentity(u, roles, deviceInfo, s.cfg.PremiumRole))
}

func randomSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
