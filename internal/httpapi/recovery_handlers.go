package httpapi

import (
	"errors"
	"net/mail"
	"net/http"
	"time"

	"eventara.org/internal/account"
	"eventara.org/internal/obs"
	"eventara.org/internal/otp"
)

type sendCodeRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email                string `json:"email"`
	Code                 string `json:"code"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

const resetSentMessage = "if the address is registered, a reset code has been sent"

// handleResetSendCode is enumeration-resistant: an unknown email gets the
// same 200 as a successful send. Rate limiting and delivery failures are
// still reported, since those only fire for addresses that do exist.
func (a *API) handleResetSendCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sendCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "malformed email")
		return
	}

	_, err := a.reset.SendCode(r.Context(), req.Email)
	switch {
	case err == nil:
		obs.RecordCodeSent(string(otp.PurposeReset))
	case errors.Is(err, account.ErrNotFound):
		// fall through to the generic message
	default:
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": resetSentMessage})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := a.reset.Reset(r.Context(), req.Email, req.Code, req.Password, req.PasswordConfirmation)
	if err != nil {
		obs.RecordCodeVerification(string(otp.PurposeReset), "failure")
		if errors.Is(err, account.ErrNotFound) {
			// same shape as a wrong code; the email is not confirmed either way
			writeError(w, r, http.StatusBadRequest, "invalid or expired code")
			return
		}
		handleAccountError(w, r, err)
		return
	}

	obs.RecordCodeVerification(string(otp.PurposeReset), "success")
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "password updated",
		"user":    acct.Summarize(),
	})
}

// handleReactivationSendCode requires the email to exist: reactivation is
// only reachable from a login that already confirmed the account is real.
func (a *API) handleReactivationSendCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sendCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "malformed email")
		return
	}

	res, err := a.reactivation.SendCode(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "no account for this email")
			return
		}
		if errors.Is(err, account.ErrSuspended) {
			// suspension is not user-recoverable; do not offer a code
			writeError(w, r, http.StatusBadRequest, "account suspended, contact support")
			return
		}
		handleAccountError(w, r, err)
		return
	}

	obs.RecordCodeSent(string(otp.PurposeReactivate))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "reactivation code sent",
		"expires_at":         res.ExpiresAt.UTC().Format(time.RFC3339),
		"remaining_attempts": res.Remaining,
	})
}

func (a *API) handleReactivationVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, token, err := a.reactivation.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		obs.RecordCodeVerification(string(otp.PurposeReactivate), "failure")
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "invalid or expired code")
			return
		}
		handleAccountError(w, r, err)
		return
	}

	obs.RecordCodeVerification(string(otp.PurposeReactivate), "success")
	a.setSessionCookie(w, token, false)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  acct.Summarize(),
		"token": token,
	})
}
