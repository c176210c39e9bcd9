package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eventara.org/internal/account"
)

const (
	sessionCookie = "eventara_session"
	authHeader    = "Authorization"
	bearer        = "Bearer "
)

// withAuth resolves the session token (cookie first, then bearer header) and
// attaches the authenticated account to the request context. It never rejects
// a request by itself; handlers that need an account call requireAccount.
// An invalid or expired token is treated the same as no token.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		acct, sess, err := a.accounts.Authenticate(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := account.ContextWithAccount(r.Context(), acct)
		ctx = account.ContextWithSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAccount fetches the authenticated account or writes a 401.
func requireAccount(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	acct, ok := account.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	return acct, true
}

// requireAdmin fetches the authenticated account and checks the admin role.
// A non-admin gets 403, not 404; the admin surface is not hidden.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	acct, ok := requireAccount(w, r)
	if !ok {
		return nil, false
	}
	if acct.Role != account.RoleAdmin {
		writeError(w, r, http.StatusForbidden, "admin role required")
		return nil, false
	}
	return acct, true
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return ""
	}
	return token
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// setSessionCookie installs the session token. Remember-me sessions get a
// persistent cookie matching the token lifetime; otherwise the cookie is
// per browser session.
func (a *API) setSessionCookie(w http.ResponseWriter, token string, remember bool) {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		c.MaxAge = int((30 * 24 * time.Hour).Seconds())
	}
	http.SetCookie(w, c)
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
