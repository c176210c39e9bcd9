package httpapi

import (
	"errors"
	"net/http"

	"eventara.org/internal/account"
	"eventara.org/internal/mailer"
	"eventara.org/internal/otp"
	"eventara.org/internal/recovery"
)

// handleAccountError is the single translation point from service errors to
// HTTP statuses. Services never pick status codes; handlers never invent
// error strings beyond what is written here.
func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, account.ErrSuspended):
		writeError(w, r, http.StatusForbidden, "account suspended, contact support")
	case errors.Is(err, account.ErrInactive):
		payload := map[string]any{
			"error":              "account inactive",
			"needs_reactivation": true,
			"reactivation_url":   "/v1/reactivation/send-code",
		}
		if rid := RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusForbidden, payload)
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, r, http.StatusUnprocessableEntity, "email is already registered")
	case errors.Is(err, account.ErrWeakPassword):
		writeError(w, r, http.StatusUnprocessableEntity, "password must be at least 8 characters")
	case errors.Is(err, account.ErrPasswordMismatch):
		writeError(w, r, http.StatusUnprocessableEntity, "password confirmation does not match")
	case errors.Is(err, account.ErrPasswordAlreadySet):
		writeError(w, r, http.StatusUnprocessableEntity, "password is already set")
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, r, http.StatusUnprocessableEntity, "invalid input")
	case errors.Is(err, account.ErrAlreadyActive):
		writeError(w, r, http.StatusBadRequest, "account is already active")
	case errors.Is(err, account.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "account not found")
	case errors.Is(err, account.ErrInvalidSession):
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, otp.ErrRateLimited):
		writeError(w, r, http.StatusBadRequest, "too many code requests today, try again tomorrow")
	case errors.Is(err, recovery.ErrInvalidCode):
		writeError(w, r, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, recovery.ErrCodeExpired):
		writeError(w, r, http.StatusBadRequest, "code has expired, request a new one")
	case errors.Is(err, mailer.ErrDeliveryFailed), errors.Is(err, otp.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "could not send the code, try again later")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
