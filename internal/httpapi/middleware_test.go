package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimit(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RateLimit(inner, 2, 1)

	do := func(ip string) int {
		r := httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil)
		r.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	if code := do("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := do("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("second request within burst: %d", code)
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted, got %d, want 429", code)
	}

	// Buckets are per client IP.
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("distinct ip: %d", code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:9999"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Fatalf("clientIP with XFF = %q", got)
	}
}
