// Package httpapi is the HTTP layer of the auth service: thin handlers that
// translate requests into service calls and service errors into statuses.
// No handler talks to storage directly.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"eventara.org/internal/account"
	"eventara.org/internal/oauth"
	"eventara.org/internal/obs"
	"eventara.org/internal/recovery"
)

// ReadyProbe checks the backing stores for /readyz.
type ReadyProbe struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Config wires the API's collaborators.
type Config struct {
	Accounts     *account.Service
	Reset        *recovery.PasswordResetService
	Reactivation *recovery.ReactivationService
	Provider     oauth.Provider

	ReadyProbe ReadyProbe
	Version    string

	// BaseURL is the externally visible origin, used for post-OAuth
	// redirects.
	BaseURL string

	// SecureCookies marks session cookies Secure. Off only for local dev
	// over plain HTTP.
	SecureCookies bool
}

// API is the HTTP layer.
type API struct {
	mux *http.ServeMux

	accounts     *account.Service
	reset        *recovery.PasswordResetService
	reactivation *recovery.ReactivationService
	provider     oauth.Provider

	readyProbe    ReadyProbe
	version       string
	baseURL       string
	secureCookies bool
}

func New(cfg Config) *API {
	a := &API{
		mux:           http.NewServeMux(),
		accounts:      cfg.Accounts,
		reset:         cfg.Reset,
		reactivation:  cfg.Reactivation,
		provider:      cfg.Provider,
		readyProbe:    cfg.ReadyProbe,
		version:       cfg.Version,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secureCookies: cfg.SecureCookies,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session auth
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/check", a.handleCheckAuth)
	a.mux.HandleFunc("/v1/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("/v1/auth/set-password", a.handleSetPassword)

	// code flows
	a.mux.HandleFunc("/v1/password-reset/send-code", a.handleResetSendCode)
	a.mux.HandleFunc("/v1/password-reset/reset-password", a.handleResetPassword)
	a.mux.HandleFunc("/v1/reactivation/send-code", a.handleReactivationSendCode)
	a.mux.HandleFunc("/v1/reactivation/verify-code", a.handleReactivationVerify)

	// oauth
	a.mux.HandleFunc("/v1/oauth/google/redirect", a.handleOAuthRedirect)
	a.mux.HandleFunc("/v1/oauth/google/callback", a.handleOAuthCallback)

	// admin account lifecycle
	a.mux.HandleFunc("/v1/admin/accounts/", a.handleAdminAccounts)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- probes ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "eventara-auth",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "eventara-auth",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
