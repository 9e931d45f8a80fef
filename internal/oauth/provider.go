package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sort"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// Provider names accepted in /api/v1/{provider}/...
const (
	ProviderGoogle = "google"
	ProviderYandex = "yandex"
)

// ErrUnknownProvider is returned for a provider that is not configured.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// Provider runs one side of the authorization-code handshake.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	// Identity exchanges code and returns the profile the provider vouches for.
	Identity(ctx context.Context, code string) (models.SocialIdentity, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists the configured providers.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NewState returns a random value for the state parameter.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
