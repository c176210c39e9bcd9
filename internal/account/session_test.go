package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, store, "alice@example.com", "Password1!", true, false)

	token, err := svc.StartSession(ctx, a, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	authed, sess, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authed.ID != a.ID {
		t.Fatalf("authenticated %s, want %s", authed.ID, a.ID)
	}
	if sess.AccountID != a.ID || sess.Remember {
		t.Fatalf("session: %+v", sess)
	}
}

func TestSessionExpiry(t *testing.T) {
	svc, store, now := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, store, "alice@example.com", "Password1!", true, false)

	plain, err := svc.StartSession(ctx, a, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	remembered, err := svc.StartSession(ctx, a, true)
	if err != nil {
		t.Fatalf("StartSession remember: %v", err)
	}

	*now = now.Add(25 * time.Hour)
	if _, _, err := svc.Authenticate(ctx, plain); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expired plain session: got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, remembered); err != nil {
		t.Fatalf("remember session at 25h: %v", err)
	}

	*now = now.Add(31 * 24 * time.Hour)
	if _, _, err := svc.Authenticate(ctx, remembered); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expired remember session: got %v", err)
	}
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, store, "alice@example.com", "Password1!", true, false)

	token, err := svc.StartSession(ctx, a, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d segments", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	if _, _, err := svc.Authenticate(ctx, tampered); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("tampered signature: got %v", err)
	}

	for _, garbage := range []string{"", "   ", "not-a-token", token + "x"} {
		if _, _, err := svc.Authenticate(ctx, garbage); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("Authenticate(%q): got %v", garbage, err)
		}
	}
}

func TestAuthenticateRejectsForeignSecret(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, store, "alice@example.com", "Password1!", true, false)

	other, err := NewService(store, WithTokenSecret("another-secret-another-secret-01"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	token, err := other.StartSession(ctx, a, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("foreign secret: got %v", err)
	}
}

func TestEndSessionIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, store, "alice@example.com", "Password1!", true, false)

	token, err := svc.StartSession(ctx, a, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := svc.EndSession(ctx, token); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("ended session: got %v", err)
	}

	// Repeat and garbage calls are no-ops.
	if err := svc.EndSession(ctx, token); err != nil {
		t.Fatalf("second EndSession: %v", err)
	}
	if err := svc.EndSession(ctx, "garbage"); err != nil {
		t.Fatalf("EndSession(garbage): %v", err)
	}
}

func TestAuthenticateGatesAccountState(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, store, "alice@example.com", "Password1!", true, false)

	token, err := svc.StartSession(ctx, a, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := store.Accounts(ctx).SetActive(ctx, a.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("inactive account session: got %v", err)
	}
}
