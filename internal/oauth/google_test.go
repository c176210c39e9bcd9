package oauth

import (
	"net/url"
	"strings"
	"testing"
)

func TestNewGoogleRequiresConfig(t *testing.T) {
	if _, err := NewGoogle(GoogleConfig{ClientID: "id"}); err == nil {
		t.Fatal("incomplete config must be rejected")
	}
}

func TestGoogleAuthURL(t *testing.T) {
	g, err := NewGoogle(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://eventara.example/v1/oauth/google/callback",
	})
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}

	raw := g.AuthURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "client-id" {
		t.Fatalf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != "state-123" {
		t.Fatalf("state = %q", q.Get("state"))
	}
	if q.Get("redirect_uri") != "https://eventara.example/v1/oauth/google/callback" {
		t.Fatalf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
}
