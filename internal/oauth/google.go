package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"eventara.org/internal/account"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig carries the client registration for the Google provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Google implements Provider against Google's OAuth2 endpoints.
type Google struct {
	conf    *oauth2.Config
	timeout time.Duration
}

// NewGoogle creates the Google provider.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("oauth: google client id, secret and redirect url are required")
	}
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		},
		timeout: 10 * time.Second,
	}, nil
}

func (g *Google) Name() string { return account.ProviderGoogle }

func (g *Google) AuthURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange swaps the authorization code for a token and fetches the userinfo
// document. The call is bounded; a hung provider must not hang the callback
// handler.
func (g *Google) Exchange(ctx context.Context, code string) (account.ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return account.ExternalIdentity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	resp, err := g.conf.Client(ctx, tok).Get(googleUserinfoURL)
	if err != nil {
		return account.ExternalIdentity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return account.ExternalIdentity{}, fmt.Errorf("%w: userinfo status %d", ErrExchangeFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return account.ExternalIdentity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	var info struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return account.ExternalIdentity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if info.Email == "" {
		return account.ExternalIdentity{}, fmt.Errorf("%w: userinfo carried no email", ErrExchangeFailed)
	}

	return account.ExternalIdentity{
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		AvatarURL: info.Picture,
	}, nil
}
