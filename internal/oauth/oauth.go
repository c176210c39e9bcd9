// Package oauth adapts external identity providers to the account subsystem.
// A Provider turns an authorization code into a verified external identity;
// everything after that (lookup, provisioning, sessions) lives in
// internal/account.
package oauth

import (
	"context"
	"errors"

	"eventara.org/internal/account"
)

// ErrExchangeFailed wraps provider-side failures during the code exchange or
// profile fetch. Handlers surface it as a generic failure and keep the
// provider detail in server logs only.
var ErrExchangeFailed = errors.New("oauth: exchange failed")

// Provider is one configured identity provider.
type Provider interface {
	// Name identifies the provider, e.g. "google". It doubles as the
	// auth_provider value stored on provisioned accounts.
	Name() string

	// AuthURL builds the provider redirect URL carrying the given anti-CSRF
	// state.
	AuthURL(state string) string

	// Exchange swaps an authorization code for the provider-verified
	// identity.
	Exchange(ctx context.Context, code string) (account.ExternalIdentity, error)
}
