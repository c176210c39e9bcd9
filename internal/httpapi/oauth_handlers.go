package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"eventara.org/internal/account"
	"eventara.org/internal/audit"
	"eventara.org/internal/ids"
	"eventara.org/internal/obs"
)

const (
	stateCookie    = "eventara_oauth_state"
	stateCookieAge = 600

	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// handleOAuthRedirect starts the provider flow: mint an anti-CSRF state,
// pin it in a short-lived cookie and send the browser to the provider.
func (a *API) handleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.provider == nil {
		a.redirectLogin(w, r, "oauth_unavailable")
		return
	}

	state := ids.New()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.provider.AuthURL(state), http.StatusFound)
}

// handleOAuthCallback finishes the provider flow. Every abort branch lands
// on the login page with a user-safe message; provider and database detail
// stays in server logs.
func (a *API) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.provider == nil {
		a.redirectLogin(w, r, "oauth_unavailable")
		return
	}

	q := r.URL.Query()
	if q.Get("error") != "" {
		_ = audit.LogEvent(r.Context(), "oauth.callback.provider_error", map[string]any{
			"provider":       a.provider.Name(),
			"provider_error": q.Get("error"),
		})
		a.redirectLogin(w, r, "oauth_denied")
		return
	}
	code := q.Get("code")
	if code == "" {
		a.redirectLogin(w, r, "oauth_malformed")
		return
	}
	if !a.validState(r, q.Get("state")) {
		a.redirectLogin(w, r, "oauth_state_mismatch")
		return
	}
	a.clearStateCookie(w)

	ext, err := a.provider.Exchange(r.Context(), code)
	if err != nil {
		obs.LogEntry(map[string]any{
			"type":     "oauth",
			"event":    "exchange_failed",
			"provider": a.provider.Name(),
			"error":    err.Error(),
		})
		a.redirectLogin(w, r, "oauth_failed")
		return
	}

	acct, token, created, err := a.accounts.LoginWithExternal(r.Context(), ext)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrSuspended), errors.Is(err, account.ErrInactive):
			a.redirectLogin(w, r, "access_denied")
		default:
			obs.LogEntry(map[string]any{
				"type":     "oauth",
				"event":    "login_failed",
				"provider": a.provider.Name(),
				"email":    ext.Email,
				"error":    err.Error(),
			})
			a.redirectLogin(w, r, "oauth_failed")
		}
		return
	}

	event := "oauth.login"
	if created {
		event = "oauth.account_provisioned"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"provider":   a.provider.Name(),
		"account_id": acct.ID,
		"email":      acct.Email,
	})

	a.setSessionCookie(w, token, false)
	http.Redirect(w, r, a.baseURL+dashboardPath+"?login=ok", http.StatusFound)
}

func (a *API) validState(r *http.Request, state string) bool {
	if state == "" {
		return false
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" {
		return false
	}
	return c.Value == state
}

func (a *API) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) redirectLogin(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, a.baseURL+loginPath+"?error="+url.QueryEscape(reason), http.StatusFound)
}
