package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// IDTokenVerifier is implemented by *oidc.Verifier.
type IDTokenVerifier interface {
	VerifyGoogle(ctx context.Context, raw string) (models.GoogleUser, error)
}

// Google builds the identity from the id_token returned with the access token.
type Google struct {
	conf     *oauth2.Config
	verifier IDTokenVerifier
}

// NewGoogle configures the provider; a zero endpoint means Google's.
func NewGoogle(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint, verifier IDTokenVerifier) *Google {
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verifier: verifier,
	}
}

func (g *Google) Name() string { return ProviderGoogle }

func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

func (g *Google) Identity(ctx context.Context, code string) (models.SocialIdentity, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return models.SocialIdentity{}, fmt.Errorf("google exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return models.SocialIdentity{}, errors.New("google exchange: no id_token in response")
	}
	u, err := g.verifier.VerifyGoogle(ctx, raw)
	if err != nil {
		return models.SocialIdentity{}, fmt.Errorf("google id_token: %w", err)
	}
	return u.Identity(), nil
}
