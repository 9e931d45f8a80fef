package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/metrics"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// Pair is what a successful signin returns.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims is a verified token.
type Claims struct {
	Identity  Identity
	TokenID   string
	Kind      Kind
	ExpiresAt time.Time
}

// Registrar is the part of the token store the issuer writes to.
type Registrar interface {
	Register(ctx context.Context, userID, tokenID string, ttl time.Duration) error
}

// wireClaims is the signed payload. Sub shadows RegisteredClaims.Subject so
// the subject claim carries the identity object instead of a string.
type wireClaims struct {
	Sub  json.RawMessage `json:"sub"`
	Type Kind            `json:"type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      Registrar
	now        func() time.Time
}

// NewIssuer creates an issuer. store may be nil (tokens are then not registered).
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration, store Registrar) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        time.Now,
	}
}

// Issue signs an access and a refresh token for identity and registers both
// token ids in the store. A store failure is logged, not returned: signature
// and expiry stay enforced without it.
func (i *Issuer) Issue(ctx context.Context, identity Identity) (*Pair, error) {
	if identity.Roles == nil {
		identity.Roles = []string{}
	}
	access, accessID, err := i.sign(identity, Access, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshID, err := i.sign(identity, Refresh, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	i.register(ctx, identity.ID, accessID, i.accessTTL)
	i.register(ctx, identity.ID, refreshID, i.refreshTTL)

	metrics.TokensIssued.WithLabelValues(string(Access)).Inc()
	metrics.TokensIssued.WithLabelValues(string(Refresh)).Inc()
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) register(ctx context.Context, userID, tokenID string, ttl time.Duration) {
	if i.store == nil {
		return
	}
	if err := i.store.Register(ctx, userID, tokenID, ttl); err != nil {
		logger.Warnf("token store unavailable, token %s for user %s not registered: %v", tokenID, userID, err)
	}
}

func (i *Issuer) sign(identity Identity, kind Kind, ttl time.Duration) (string, string, error) {
	sub, err := json.Marshal(identity)
	if err != nil {
		return "", "", err
	}
	now := i.now().UTC()
	jti := uuid.NewString()
	claims := wireClaims{
		Sub:  sub,
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Verify checks signature, expiry and the subject schema, and that the token
// is of the expected kind.
func (i *Issuer) Verify(raw string, want Kind) (*Claims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(raw, &wc, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrap(apperrors.KindExpired, "Token has expired.", err)
		}
		return nil, apperrors.Wrap(apperrors.KindMalformed, "Invalid token.", err)
	}
	if wc.ID == "" {
		return nil, apperrors.New(apperrors.KindMalformed, "Invalid token. Missing token id.")
	}
	if wc.Type != want {
		return nil, apperrors.New(apperrors.KindMalformed, fmt.Sprintf("Invalid token. Expected %s token.", want))
	}
	identity, err := ParseIdentity(wc.Sub)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidClaims, "Invalid token payload.", err)
	}
	return &Claims{
		Identity:  identity,
		TokenID:   wc.ID,
		Kind:      wc.Type,
		ExpiresAt: wc.ExpiresAt.Time,
	}, nil
}
