package httpapi

import (
	"errors"
	"net/http"

	"eventara.org/internal/account"
	"eventara.org/internal/audit"
	"eventara.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type registerRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, token, err := a.accounts.Login(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		outcome := loginOutcome(err)
		obs.RecordLogin(outcome)
		_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
			"email":  req.Email,
			"reason": outcome,
		})
		handleAccountError(w, r, err)
		return
	}

	obs.RecordLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"account_id": acct.ID,
		"email":      acct.Email,
		"remember":   req.Remember,
	})

	a.setSessionCookie(w, token, req.Remember)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  acct.Summarize(),
		"token": token,
	})
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, account.ErrSuspended):
		return "suspended"
	case errors.Is(err, account.ErrInactive):
		return "inactive"
	default:
		return "bad_credentials"
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, token, err := a.accounts.Register(r.Context(), account.RegisterInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"account_id": acct.ID,
		"email":      acct.Email,
	})

	a.setSessionCookie(w, token, false)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  acct.Summarize(),
		"token": token,
	})
}

// handleLogout ends the current session. It succeeds even without a valid
// session; logout is idempotent.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if token := sessionToken(r); token != "" {
		if err := a.accounts.EndSession(r.Context(), token); err != nil {
			handleAccountError(w, r, err)
			return
		}
	}
	if acct, ok := account.FromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
			"account_id": acct.ID,
			"email":      acct.Email,
		})
	}
	a.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, ok := account.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          acct.Summarize(),
	})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	acct, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.accounts.ChangePassword(r.Context(), acct.ID, req.CurrentPassword, req.Password); err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnprocessableEntity, "current password is incorrect")
			return
		}
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password.changed", map[string]any{
		"account_id": acct.ID,
		"email":      acct.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleSetPassword gives an OAuth-provisioned account its first password,
// opening the email+password login path alongside the provider.
func (a *API) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	acct, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req setPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.accounts.SetInitialPassword(r.Context(), acct.ID, req.Password); err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password.set", map[string]any{
		"account_id": acct.ID,
		"email":      acct.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
