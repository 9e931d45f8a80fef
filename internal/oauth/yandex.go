package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/yandex"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// Yandex reads the identity from the user-info endpoint after the exchange.
type Yandex struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewYandex configures the provider; a zero endpoint means Yandex's.
func NewYandex(clientID, clientSecret, redirectURL, userInfoURL string, endpoint oauth2.Endpoint) *Yandex {
	if endpoint.TokenURL == "" {
		endpoint = yandex.Endpoint
	}
	return &Yandex{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"login:email", "login:info"},
		},
		userInfoURL: userInfoURL,
	}
}

func (y *Yandex) Name() string { return ProviderYandex }

func (y *Yandex) AuthCodeURL(state string) string {
	return y.conf.AuthCodeURL(state)
}

func (y *Yandex) Identity(ctx context.Context, code string) (models.SocialIdentity, error) {
	tok, err := y.conf.Exchange(ctx, code)
	if err != nil {
		return models.SocialIdentity{}, fmt.Errorf("yandex exchange: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.userInfoURL, nil)
	if err != nil {
		return models.SocialIdentity{}, err
	}
	resp, err := y.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return models.SocialIdentity{}, fmt.Errorf("yandex user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.SocialIdentity{}, fmt.Errorf("yandex user info: status %d: %s", resp.StatusCode, body)
	}
	var u models.YandexUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return models.SocialIdentity{}, fmt.Errorf("yandex user info: %w", err)
	}
	if u.ID == "" {
		return models.SocialIdentity{}, errors.New("yandex user info: no id")
	}
	return u.Identity(), nil
}
