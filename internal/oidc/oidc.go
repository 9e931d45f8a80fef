package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// Verifier checks Google id_tokens returned by the code exchange.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer's keys and creates a verifier bound to clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// VerifyGoogle verifies raw and decodes the profile claims.
func (v *Verifier) VerifyGoogle(ctx context.Context, raw string) (models.GoogleUser, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return models.GoogleUser{}, err
	}
	var u models.GoogleUser
	if err := idToken.Claims(&u); err != nil {
		return models.GoogleUser{}, fmt.Errorf("decode id_token claims: %w", err)
	}
	if u.Sub == "" {
		return models.GoogleUser{}, fmt.Errorf("id_token has no subject")
	}
	return u, nil
}
