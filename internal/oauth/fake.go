package oauth

import (
	"context"

	"eventara.org/internal/account"
)

// Fake is a canned Provider for tests: every valid code resolves to Identity.
type Fake struct {
	// Identity is returned for codes matching Code.
	Identity account.ExternalIdentity

	// Code is the single accepted authorization code. Empty accepts any.
	Code string

	// Err, when set, is returned by every Exchange call.
	Err error
}

func (f *Fake) Name() string { return account.ProviderGoogle }

func (f *Fake) AuthURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *Fake) Exchange(_ context.Context, code string) (account.ExternalIdentity, error) {
	if f.Err != nil {
		return account.ExternalIdentity{}, f.Err
	}
	if f.Code != "" && code != f.Code {
		return account.ExternalIdentity{}, ErrExchangeFailed
	}
	return f.Identity, nil
}
