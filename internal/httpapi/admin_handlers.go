package httpapi

import (
	"net/http"
	"strings"

	"eventara.org/internal/audit"
)

// handleAdminAccounts routes /v1/admin/accounts/{id}/{action}. All actions
// are POST and admin-only.
func (a *API) handleAdminAccounts(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/accounts/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id, action := parts[0], parts[1]
	var err error
	switch action {
	case "suspend":
		err = a.accounts.Suspend(r.Context(), id)
	case "unsuspend":
		err = a.accounts.Unsuspend(r.Context(), id)
	case "deactivate":
		err = a.accounts.Deactivate(r.Context(), id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "admin.account."+action, map[string]any{
		"admin_id":   admin.ID,
		"account_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
